package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/leonardotrapani/listenin/internal/meeting"
)

const textWidth = 80

var wrapStyle = lipgloss.NewStyle().Width(textWidth).PaddingLeft(2)

// RenderList renders records as a table, newest first as stored.
func RenderList(records []meeting.Summary) string {
	if len(records) == 0 {
		return StyleMuted.Render("No meetings yet.")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		Headers("ID", "Recorded", "Type", "Duration", "Actions", "Overview")

	for _, r := range records {
		t.Row(
			r.ID,
			r.RecordedAt.Local().Format("Jan 2 15:04"),
			r.Framework.DisplayName(),
			r.Duration,
			fmt.Sprintf("%d/%d", r.CompletedCount(), len(r.ActionItems)),
			shorten(r.Overview, 48),
		)
	}
	return t.String()
}

// RenderMeeting renders one record. The transcript is included only when
// withTranscript is set.
func RenderMeeting(r *meeting.Summary, withTranscript bool) string {
	var b strings.Builder

	b.WriteString(StyleHeader.Render(fmt.Sprintf("%s · %s", r.Framework.DisplayName(), r.RecordedAt.Local().Format(time.RFC1123))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s\n", StyleLabel.Render("Duration:"), r.Duration, StyleLabel.Render("ID:"), StyleMuted.Render(r.ID))
	if len(r.Participants) > 0 {
		fmt.Fprintf(&b, "%s %s\n", StyleLabel.Render("Participants:"), strings.Join(r.Participants, ", "))
	}

	section(&b, "Overview")
	b.WriteString(wrapStyle.Render(r.Overview))
	b.WriteString("\n")

	if len(r.Chapters) > 0 {
		section(&b, "Chapters")
		for _, c := range r.Chapters {
			fmt.Fprintf(&b, "  %s %s\n", StyleHighlight.Render("["+c.Timestamp+"]"), StyleLabel.Render(c.Title))
			if c.Summary != "" {
				b.WriteString(wrapStyle.PaddingLeft(4).Render(c.Summary))
				b.WriteString("\n")
			}
		}
	}

	if len(r.Highlights) > 0 {
		section(&b, "Highlights")
		for _, h := range r.Highlights {
			fmt.Fprintf(&b, "  %q - %s %s %s\n", h.Quote, h.Speaker,
				StyleMuted.Render("["+h.Timestamp+"]"),
				LevelStyle(h.Importance).Render(string(h.Importance)))
		}
	}

	section(&b, fmt.Sprintf("Action Items (%d/%d done)", r.CompletedCount(), len(r.ActionItems)))
	if len(r.ActionItems) == 0 {
		b.WriteString("  " + StyleMuted.Render("none") + "\n")
	}
	for i, item := range r.ActionItems {
		b.WriteString("  " + RenderActionItem(i, item) + "\n")
	}

	if withTranscript {
		section(&b, "Transcript")
		b.WriteString(wrapStyle.Render(r.Transcript))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderActionItem renders one numbered action item line.
func RenderActionItem(index int, item meeting.ActionItem) string {
	box := "[ ]"
	task := item.Task
	if item.Completed {
		box = StyleSuccess.Render("[x]")
		task = StyleMuted.Strikethrough(true).Render(task)
	}
	line := fmt.Sprintf("%d. %s %s - %s %s", index, box, task, item.Assignee, LevelStyle(item.Priority).Render("("+string(item.Priority)+")"))
	if item.DueDate != nil {
		line += StyleMuted.Render(" due " + *item.DueDate)
	}
	return line
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(StyleHighlight.Render(title))
	b.WriteString("\n")
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
