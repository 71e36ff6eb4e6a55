// Package export writes meeting records as Markdown, JSON, YAML or DOCX.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/leonardotrapani/listenin/internal/meeting"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	Markdown Format = "md"
	JSON     Format = "json"
	YAML     Format = "yaml"
	DOCX     Format = "docx"
)

var Formats = []Format{Markdown, JSON, YAML, DOCX}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "docx", "word":
		return DOCX, nil
	}
	return "", fmt.Errorf("unknown export format %q (use md, json, yaml or docx)", s)
}

// Binary reports whether the format can only be written to a file.
func (f Format) Binary() bool { return f == DOCX }

// Filename is the default output name for a record.
func Filename(r *meeting.Summary, f Format) string {
	return r.ID + "." + string(f)
}

// Encode writes r to w in a text format. The transcript is dropped unless
// withTranscript is set.
func Encode(w io.Writer, r *meeting.Summary, f Format, withTranscript bool) error {
	rec := *r
	if !withTranscript {
		rec.Transcript = ""
	}

	switch f {
	case Markdown:
		_, err := io.WriteString(w, RenderMarkdown(&rec))
		return err
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&rec)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&rec); err != nil {
			return err
		}
		return enc.Close()
	case DOCX:
		return fmt.Errorf("docx export needs an output file")
	}
	return fmt.Errorf("unknown export format %q", f)
}

// WriteFile writes r to path in any format.
func WriteFile(path string, r *meeting.Summary, f Format, withTranscript bool) error {
	if f == DOCX {
		rec := *r
		if !withTranscript {
			rec.Transcript = ""
		}
		return markdownToDocx(Title(&rec), RenderMarkdownBody(&rec), path)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, r, f, withTranscript); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Title is the heading used for a record.
func Title(r *meeting.Summary) string {
	return fmt.Sprintf("%s - %s", r.Framework.DisplayName(), r.RecordedAt.Local().Format(time.RFC1123))
}

// RenderMarkdown renders r as a Markdown document.
func RenderMarkdown(r *meeting.Summary) string {
	return "# " + Title(r) + "\n\n" + RenderMarkdownBody(r)
}

// RenderMarkdownBody is RenderMarkdown without the title line.
func RenderMarkdownBody(r *meeting.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Duration:** %s\n", r.Duration)
	if len(r.Participants) > 0 {
		fmt.Fprintf(&b, "**Participants:** %s\n", strings.Join(r.Participants, ", "))
	}

	b.WriteString("\n## Overview\n\n")
	b.WriteString(r.Overview)
	b.WriteString("\n")

	if len(r.Chapters) > 0 {
		b.WriteString("\n## Chapters\n\n")
		for _, c := range r.Chapters {
			fmt.Fprintf(&b, "- **[%s] %s**", c.Timestamp, c.Title)
			if c.Summary != "" {
				fmt.Fprintf(&b, " %s", c.Summary)
			}
			b.WriteString("\n")
		}
	}

	if len(r.Highlights) > 0 {
		b.WriteString("\n## Highlights\n\n")
		for _, h := range r.Highlights {
			fmt.Fprintf(&b, "- %q - %s [%s] (%s)\n", h.Quote, h.Speaker, h.Timestamp, h.Importance)
		}
	}

	fmt.Fprintf(&b, "\n## Action Items (%d/%d done)\n\n", r.CompletedCount(), len(r.ActionItems))
	if len(r.ActionItems) == 0 {
		b.WriteString("None\n")
	}
	for _, item := range r.ActionItems {
		box := "[ ]"
		if item.Completed {
			box = "[x]"
		}
		fmt.Fprintf(&b, "- %s %s - %s (%s)", box, item.Task, item.Assignee, item.Priority)
		if item.DueDate != nil {
			fmt.Fprintf(&b, ", due %s", *item.DueDate)
		}
		b.WriteString("\n")
	}

	if r.Transcript != "" {
		b.WriteString("\n## Transcript\n\n")
		b.WriteString(r.Transcript)
		b.WriteString("\n")
	}

	return b.String()
}
