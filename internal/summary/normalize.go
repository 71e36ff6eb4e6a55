package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leonardotrapani/listenin/internal/meeting"
)

// RequiredFields must be present, and non-null, in every model summary.
var RequiredFields = []string{"overview", "chapters", "highlights", "actionItems", "participants"}

type rawHighlight struct {
	Quote      string `json:"quote"`
	Speaker    string `json:"speaker"`
	Timestamp  string `json:"timestamp"`
	Importance string `json:"importance"`
}

type rawActionItem struct {
	Task     string  `json:"task"`
	Assignee string  `json:"assignee"`
	Priority string  `json:"priority"`
	DueDate  *string `json:"dueDate"`
}

// rawSummary is the model's output before enum validation. Levels are kept as
// strings so unknown values can be defaulted instead of failing the decode.
type rawSummary struct {
	Overview     string            `json:"overview"`
	Chapters     []meeting.Chapter `json:"chapters"`
	Highlights   []rawHighlight    `json:"highlights"`
	ActionItems  []rawActionItem   `json:"actionItems"`
	Participants []string          `json:"participants"`
}

// Normalize validates a model summary object and converts it into a record
// without identity fields. Unknown priority or importance values become
// medium, and every action item starts incomplete.
func Normalize(raw json.RawMessage) (*meeting.Summary, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("summary is not a JSON object: %w", err)
	}
	var missing []string
	for _, name := range RequiredFields {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("summary is missing required fields: %s", strings.Join(missing, ", "))
	}

	var in rawSummary
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("summary has unexpected field types: %w", err)
	}

	out := &meeting.Summary{
		Overview:     in.Overview,
		Chapters:     in.Chapters,
		Highlights:   make([]meeting.Highlight, 0, len(in.Highlights)),
		ActionItems:  make([]meeting.ActionItem, 0, len(in.ActionItems)),
		Participants: in.Participants,
	}
	if out.Chapters == nil {
		out.Chapters = []meeting.Chapter{}
	}
	if out.Participants == nil {
		out.Participants = []string{}
	}
	for _, h := range in.Highlights {
		out.Highlights = append(out.Highlights, meeting.Highlight{
			Quote:      h.Quote,
			Speaker:    h.Speaker,
			Timestamp:  h.Timestamp,
			Importance: levelOrMedium(h.Importance),
		})
	}
	for _, a := range in.ActionItems {
		out.ActionItems = append(out.ActionItems, meeting.ActionItem{
			Task:      a.Task,
			Assignee:  a.Assignee,
			Priority:  levelOrMedium(a.Priority),
			DueDate:   a.DueDate,
			Completed: false,
		})
	}
	return out, nil
}

func levelOrMedium(s string) meeting.Level {
	if l, ok := meeting.ParseLevel(s); ok {
		return l
	}
	return meeting.Medium
}
