// Package meeting holds the meeting record model shared by the recorder,
// the summary pipeline, the record store and the HTTP surface.
package meeting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinSummaryLength is the shortest transcript worth summarizing.
const MinSummaryLength = 50

// TranscriptChunk is one unit of transcribed text, timestamped relative to
// the start of the transcription session.
type TranscriptChunk struct {
	Text        string `json:"text"`
	TimestampMs int64  `json:"timestamp"`
	IsFinal     bool   `json:"isFinal"`
}

// Level is shared by highlight importance and action item priority.
type Level string

const (
	High   Level = "high"
	Medium Level = "medium"
	Low    Level = "low"
)

// ParseLevel reports whether s is a known level.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case High:
		return High, true
	case Medium:
		return Medium, true
	case Low:
		return Low, true
	}
	return "", false
}

type Chapter struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Title     string `json:"title" yaml:"title"`
	Summary   string `json:"summary" yaml:"summary"`
}

type Highlight struct {
	Quote      string `json:"quote" yaml:"quote"`
	Speaker    string `json:"speaker" yaml:"speaker"`
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	Importance Level  `json:"importance" yaml:"importance"`
}

type ActionItem struct {
	Task      string  `json:"task" yaml:"task"`
	Assignee  string  `json:"assignee" yaml:"assignee"`
	Priority  Level   `json:"priority" yaml:"priority"`
	DueDate   *string `json:"dueDate" yaml:"dueDate"`
	Completed bool    `json:"completed" yaml:"completed"`
}

// Summary is a persisted meeting record. The transcript is a frozen copy
// taken when the summary was generated.
type Summary struct {
	ID           string       `json:"id" yaml:"id"`
	Overview     string       `json:"overview" yaml:"overview"`
	Chapters     []Chapter    `json:"chapters" yaml:"chapters"`
	Highlights   []Highlight  `json:"highlights" yaml:"highlights"`
	ActionItems  []ActionItem `json:"actionItems" yaml:"actionItems"`
	Participants []string     `json:"participants" yaml:"participants"`
	Duration     string       `json:"duration" yaml:"duration"`
	RecordedAt   time.Time    `json:"recordedAt" yaml:"recordedAt"`
	Transcript   string       `json:"transcript" yaml:"transcript"`
	Framework    Framework    `json:"framework" yaml:"framework"`
}

// Matches reports whether query appears in the overview or participant names.
// An empty query matches everything.
func (s *Summary) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(s.Overview), q) {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(s.Participants, " ")), q)
}

// CompletedCount returns how many action items are done.
func (s *Summary) CompletedCount() int {
	n := 0
	for _, item := range s.ActionItems {
		if item.Completed {
			n++
		}
	}
	return n
}

// FormatDuration renders seconds as MM:SS. Minutes are not wrapped into hours.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// NewID returns a record id built from the creation time and a random suffix.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("meeting_%d_%s", now.UnixMilli(), suffix)
}
