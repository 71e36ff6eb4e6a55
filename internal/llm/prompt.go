package llm

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/listenin/internal/meeting"
)

const (
	firstFramePrompt        = "Transcribe this audio in real-time. Only output the spoken words, no formatting or explanations:"
	continuationFramePrompt = "Continue transcribing:"
)

// TranscribePrompt picks the start or continuation instruction. The endpoint
// keeps no state between frames, so this flag is the only continuity signal.
func TranscribePrompt(isFirst bool) string {
	if isFirst {
		return firstFramePrompt
	}
	return continuationFramePrompt
}

var frameworkFocus = map[meeting.Framework][]string{
	meeting.Sales: {
		"Identify customer objections and how they were handled",
		"Capture pricing, budget, and timeline signals",
		"List commitments made by either side and agreed next steps",
	},
	meeting.OneOnOne: {
		"Capture feedback given in both directions",
		"Note personal and career goals discussed",
		"Record follow-ups owned by each person",
	},
	meeting.Standup: {
		"Summarize each participant's update",
		"Call out blockers explicitly as high-priority highlights",
		"Keep chapters short; standups are brief",
	},
	meeting.Brainstorm: {
		"Capture every distinct idea raised, even if not pursued",
		"Note which ideas were selected and why",
		"Record open questions as action items",
	},
}

// BuildSummaryPrompt renders the summary instructions for one transcript.
func BuildSummaryPrompt(transcript, duration string, framework meeting.Framework) string {
	if duration == "" {
		duration = "Unknown"
	}

	var b strings.Builder
	b.WriteString("Analyze this meeting transcript and generate a comprehensive structured summary.\n\n")
	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nDURATION: ")
	b.WriteString(duration)
	b.WriteString("\n\nINSTRUCTIONS:\n")

	steps := []string{
		"Provide a clear 2-3 sentence executive overview",
		"Break the meeting into logical chapters with timestamps (estimate based on content flow)",
		"Extract the most important highlights with quotes",
		"Identify all action items mentioned",
		"List all participants mentioned by name",
		"Use the exact JSON schema provided",
		"Be thorough but concise",
		`If information is not available, use appropriate defaults (e.g., "Unknown" for speakers)`,
	}
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	if focus, ok := frameworkFocus[framework]; ok {
		fmt.Fprintf(&b, "\nMEETING TYPE: %s (%s)\n", framework.DisplayName(), framework.Description())
		for _, f := range focus {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	b.WriteString("\nGenerate the structured summary now:")
	return b.String()
}

// BuildChatPrompt grounds the answer in the transcript only.
func BuildChatPrompt(question, transcript string) string {
	return fmt.Sprintf(`You are an intelligent meeting assistant helping to answer questions about a meeting transcript.

MEETING TRANSCRIPT:
%s

USER QUESTION:
%s

INSTRUCTIONS:
- Answer the user's question based ONLY on the information in the transcript above
- Be concise and specific in your answers
- If the transcript doesn't contain enough information to answer the question, say so
- Use a helpful, professional tone
- If referring to specific parts of the meeting, mention them
- Don't make assumptions beyond what's in the transcript

ANSWER:`, transcript, question)
}
