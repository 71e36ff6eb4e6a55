package llm

import "google.golang.org/genai"

// SummaryRequiredFields must all be present in a model's summary object.
var SummaryRequiredFields = []string{"overview", "chapters", "highlights", "actionItems", "participants"}

func str(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func level(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: []string{"high", "medium", "low"}, Description: description}
}

// SummarySchema is the structured output contract for the summarize endpoint.
func SummarySchema() *genai.Schema {
	nullable := true
	dueDate := str("Due date if mentioned, otherwise null")
	dueDate.Nullable = &nullable

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overview": str("2-3 sentence executive summary of the meeting"),
			"chapters": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"timestamp": str("Timestamp in MM:SS format"),
						"title":     str("Chapter title"),
						"summary":   str("Brief description of this segment"),
					},
					Required: []string{"timestamp", "title", "summary"},
				},
			},
			"highlights": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"quote":      str("Exact quote from the meeting"),
						"speaker":    str("Speaker's name or 'Unknown'"),
						"timestamp":  str("Timestamp in MM:SS format"),
						"importance": level("Importance level"),
					},
					Required: []string{"quote", "speaker", "timestamp", "importance"},
				},
			},
			"actionItems": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task":     str("Clear action item description"),
						"assignee": str("Person responsible or 'Unassigned'"),
						"priority": level("Priority level"),
						"dueDate":  dueDate,
					},
					Required: []string{"task", "assignee", "priority", "dueDate"},
				},
			},
			"participants": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "List of participant names identified in the meeting",
			},
		},
		Required: SummaryRequiredFields,
	}
}

// summaryShapeHint spells the schema out for providers without schema-constrained output.
const summaryShapeHint = `Respond with a single JSON object of this exact shape:
{
  "overview": string,
  "chapters": [{"timestamp": "MM:SS", "title": string, "summary": string}],
  "highlights": [{"quote": string, "speaker": string, "timestamp": "MM:SS", "importance": "high"|"medium"|"low"}],
  "actionItems": [{"task": string, "assignee": string, "priority": "high"|"medium"|"low", "dueDate": string|null}],
  "participants": [string]
}`
