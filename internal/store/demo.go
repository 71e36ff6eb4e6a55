package store

import (
	"context"
	"log"
	"time"

	"github.com/leonardotrapani/listenin/internal/meeting"
)

// SeedDemo fills an empty store with two sample meetings. It runs at most
// once per store and never touches a store that already has records.
func (s *Store) SeedDemo(ctx context.Context, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seeded, err := s.kv.Get(ctx, DemoSeededKey); err != nil || seeded {
		return false, err
	}
	records, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	if len(records) > 0 {
		return false, nil
	}

	if err := s.write(ctx, DemoMeetings(now)); err != nil {
		return false, err
	}
	if err := s.kv.Set(ctx, DemoSeededKey, []byte("true")); err != nil {
		return false, err
	}
	log.Printf("Store: seeded demo meetings")
	return true, nil
}

func due(s string) *string { return &s }

// DemoMeetings returns the sample records, dated relative to now.
func DemoMeetings(now time.Time) []meeting.Summary {
	const day = 24 * time.Hour
	return []meeting.Summary{
		{
			ID:        "demo_sales_call",
			Framework: meeting.Sales,
			Overview: "Productive sales call with Acme Corp discussing their enterprise plan. " +
				"Strong interest shown with budget confirmed at $50K. Main objection around implementation " +
				"timeline addressed. Next steps include sending proposal by Friday and scheduling technical demo.",
			Chapters: []meeting.Chapter{
				{Timestamp: "00:00", Title: "Introduction & Discovery", Summary: "Opening pleasantries and initial discovery about their current pain points with manual meeting documentation."},
				{Timestamp: "05:30", Title: "Product Demo", Summary: "Walked through key features including real-time transcription, AI summaries, and framework-specific analysis."},
				{Timestamp: "12:45", Title: "Objections & Concerns", Summary: "Discussed implementation timeline concerns and addressed data security questions."},
				{Timestamp: "18:20", Title: "Pricing & Next Steps", Summary: "Confirmed budget, presented pricing options, and agreed on next steps with clear deadlines."},
			},
			Highlights: []meeting.Highlight{
				{Quote: "We absolutely need this for our sales team, the manual note-taking is killing productivity", Speaker: "John Smith (CTO)", Timestamp: "03:15", Importance: meeting.High},
				{Quote: "Budget is approved for $50K annually if we can get this implemented by Q2", Speaker: "Sarah Johnson (VP Sales)", Timestamp: "16:42", Importance: meeting.High},
				{Quote: "Can we integrate this with Salesforce? That would be a game-changer", Speaker: "John Smith (CTO)", Timestamp: "14:30", Importance: meeting.Medium},
			},
			ActionItems: []meeting.ActionItem{
				{Task: "Send detailed proposal with enterprise pricing", Assignee: "Sales Rep", Priority: meeting.High, DueDate: due("Friday, Jan 17")},
				{Task: "Schedule technical demo with engineering team", Assignee: "Sales Rep", Priority: meeting.High, DueDate: due("Next Week")},
				{Task: "Provide Salesforce integration documentation", Assignee: "Product Team", Priority: meeting.Medium, DueDate: due("Jan 20")},
				{Task: "Follow up on security questionnaire", Assignee: "Sarah Johnson", Priority: meeting.Medium, DueDate: due("Next Week")},
			},
			Participants: []string{"John Smith (CTO)", "Sarah Johnson (VP Sales)", "Sales Rep"},
			Duration:     "23:15",
			RecordedAt:   now.Add(-2 * day),
			Transcript:   "This is a demo sales call transcript. In a real meeting, this would contain the full conversation...",
		},
		{
			ID:        "demo_brainstorm",
			Framework: meeting.Brainstorm,
			Overview: "Energetic brainstorming session for the new mobile app redesign. Generated 15+ ideas " +
				"across UI improvements, feature additions, and onboarding flow. Converged on top 3 priorities: " +
				"dark mode toggle, offline support, and improved onboarding. Team will prototype dark mode first.",
			Chapters: []meeting.Chapter{
				{Timestamp: "00:00", Title: "Divergent Brainstorming", Summary: "Free-flowing idea generation without constraints. Team members shared wild ideas for improving the mobile experience."},
				{Timestamp: "08:15", Title: "Grouping & Themes", Summary: "Organized ideas into themes: UI/UX improvements, new features, performance, and onboarding."},
				{Timestamp: "15:30", Title: "Convergent Decision Making", Summary: "Voted on top priorities using dot voting. Dark mode, offline support, and onboarding emerged as winners."},
				{Timestamp: "22:45", Title: "Next Steps", Summary: "Assigned owners for each priority and set timeline for initial prototypes."},
			},
			Highlights: []meeting.Highlight{
				{Quote: "What if we made the entire app gesture-based? Swipe actions for everything!", Speaker: "Alex Chen (Designer)", Timestamp: "04:20", Importance: meeting.Medium},
				{Quote: "Dark mode is the #1 request from users. We need to ship this ASAP", Speaker: "Maria Rodriguez (Product)", Timestamp: "17:35", Importance: meeting.High},
				{Quote: "Let's build a quick prototype of the dark mode this week and test with users", Speaker: "David Kim (Engineering)", Timestamp: "25:10", Importance: meeting.High},
			},
			ActionItems: []meeting.ActionItem{
				{Task: "Create dark mode design mockups", Assignee: "Alex Chen", Priority: meeting.High, DueDate: due("Wednesday")},
				{Task: "Research offline storage solutions", Assignee: "David Kim", Priority: meeting.High, DueDate: due("Friday")},
				{Task: "Design new onboarding flow wireframes", Assignee: "Alex Chen", Priority: meeting.Medium, DueDate: due("Next Week")},
				{Task: "Schedule user testing sessions", Assignee: "Maria Rodriguez", Priority: meeting.Medium, DueDate: due("Next Week")},
				{Task: "Build dark mode toggle prototype", Assignee: "David Kim", Priority: meeting.High, DueDate: due("Next Friday")},
			},
			Participants: []string{"Alex Chen (Designer)", "Maria Rodriguez (Product)", "David Kim (Engineering)", "Lisa Park (UX Research)"},
			Duration:     "28:42",
			RecordedAt:   now.Add(-5 * day),
			Transcript:   "This is a demo brainstorming session transcript. In a real meeting, this would contain the full conversation...",
		},
	}
}
