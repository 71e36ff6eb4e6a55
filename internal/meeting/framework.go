package meeting

import "strings"

// Framework selects the summarization instructions for a meeting.
type Framework string

const (
	Sales      Framework = "sales"
	OneOnOne   Framework = "one-on-one"
	Standup    Framework = "standup"
	Brainstorm Framework = "brainstorm"
	General    Framework = "general"
)

// Frameworks lists every framework in selector order.
var Frameworks = []Framework{Sales, OneOnOne, Standup, Brainstorm, General}

var frameworkInfo = map[Framework]struct {
	name        string
	description string
}{
	Sales:      {"Sales Call", "Track objections, commitments, and next steps"},
	OneOnOne:   {"1:1 Meeting", "Focus on feedback, goals, and action items"},
	Standup:    {"Standup", "Quick updates, blockers, and daily goals"},
	Brainstorm: {"Brainstorm", "Capture ideas, decisions, and creative solutions"},
	General:    {"General", "Standard meeting analysis and summary"},
}

// ParseFramework accepts the canonical ids plus "1:1" and "1-on-1".
func ParseFramework(s string) (Framework, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "1:1", "1-on-1", "oneonone":
		return OneOnOne, true
	}
	f := Framework(v)
	_, ok := frameworkInfo[f]
	return f, ok
}

// FrameworkOrDefault falls back to General for unknown values.
func FrameworkOrDefault(s string) Framework {
	if f, ok := ParseFramework(s); ok {
		return f
	}
	return General
}

func (f Framework) DisplayName() string {
	if info, ok := frameworkInfo[f]; ok {
		return info.name
	}
	return string(f)
}

func (f Framework) Description() string {
	return frameworkInfo[f].description
}
