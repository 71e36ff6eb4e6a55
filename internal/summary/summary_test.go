package summary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/store"
	"github.com/leonardotrapani/listenin/internal/testutil"
)

type fakeSummarizer struct {
	raw  string
	err  error
	reqs []api.SummarizeRequest
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req api.SummarizeRequest) (*api.SummarizeResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &api.SummarizeResponse{Success: true, Summary: json.RawMessage(f.raw)}, nil
}

func newPipeline(client Summarizer) (*Pipeline, *store.Store) {
	st := store.New(store.NewMemoryKV(), 0)
	return New(client, st), st
}

func TestGenerate(t *testing.T) {
	client := &fakeSummarizer{raw: testutil.ValidSummaryJSON}
	p, st := newPipeline(client)
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	transcript := strings.Repeat("Standup notes. ", 14)[:200]
	var progress []int
	got, err := p.Generate(context.Background(), transcript, 125, meeting.Standup, func(v int) {
		progress = append(progress, v)
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(client.reqs) != 1 {
		t.Fatalf("made %d requests", len(client.reqs))
	}
	req := client.reqs[0]
	if req.Duration != "02:05" || req.Framework != "standup" || req.Transcript != transcript {
		t.Errorf("request = %+v", req)
	}

	wantProgress := []int{10, 30, 70, 90, 100}
	if len(progress) != len(wantProgress) {
		t.Fatalf("progress = %v", progress)
	}
	for i := range wantProgress {
		if progress[i] != wantProgress[i] {
			t.Errorf("progress = %v, want %v", progress, wantProgress)
			break
		}
	}

	if !strings.HasPrefix(got.ID, "meeting_") || !got.RecordedAt.Equal(now) {
		t.Errorf("identity = %q %v", got.ID, got.RecordedAt)
	}
	if got.Transcript != transcript || got.Framework != meeting.Standup || got.Duration != "02:05" {
		t.Errorf("attached fields = %q %q %q", got.Transcript, got.Framework, got.Duration)
	}
	for i, item := range got.ActionItems {
		if item.Completed {
			t.Errorf("action item %d should start incomplete", i)
		}
	}
	if got.ActionItems[1].Priority != meeting.Medium {
		t.Errorf("unknown priority should default to medium, got %q", got.ActionItems[1].Priority)
	}
	if got.ActionItems[0].DueDate != nil || *got.ActionItems[1].DueDate != "Friday" {
		t.Errorf("due dates = %v %v", got.ActionItems[0].DueDate, got.ActionItems[1].DueDate)
	}

	saved, err := st.Get(context.Background(), got.ID)
	if err != nil || saved.Overview != got.Overview {
		t.Errorf("record not persisted: %v", err)
	}
	if p.Progress() != 100 || p.Generating() || p.LastError() != nil {
		t.Errorf("final state = %d %v %v", p.Progress(), p.Generating(), p.LastError())
	}

	again, err := p.Generate(context.Background(), transcript, 125, meeting.Standup, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID == got.ID {
		t.Error("ids must be unique across generations")
	}
}

func TestGenerateTooShort(t *testing.T) {
	client := &fakeSummarizer{raw: testutil.ValidSummaryJSON}
	p, st := newPipeline(client)

	called := false
	_, err := p.Generate(context.Background(), strings.Repeat("x", 49), 10, meeting.General, func(int) { called = true })
	if !apperr.IsKind(err, apperr.InputTooShort) {
		t.Errorf("error kind = %q", apperr.KindOf(err))
	}
	if len(client.reqs) != 0 || called {
		t.Error("short transcript must not reach the network or report progress")
	}
	if list, _ := st.List(context.Background()); len(list) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		client   *fakeSummarizer
		wantKind apperr.Kind
	}{
		{"missing field", &fakeSummarizer{raw: `{"overview":"x","chapters":[],"highlights":[],"participants":[]}`}, apperr.MalformedResponse},
		{"null field", &fakeSummarizer{raw: `{"overview":"x","chapters":null,"highlights":[],"actionItems":[],"participants":[]}`}, apperr.MalformedResponse},
		{"wrong type", &fakeSummarizer{raw: `{"overview":3,"chapters":[],"highlights":[],"actionItems":[],"participants":[]}`}, apperr.MalformedResponse},
		{"not an object", &fakeSummarizer{raw: `["overview"]`}, apperr.MalformedResponse},
		{"quota", &fakeSummarizer{err: apperr.New(apperr.QuotaExceeded, "summarize", "")}, apperr.QuotaExceeded},
		{"safety", &fakeSummarizer{err: errors.New("blocked: SAFETY")}, apperr.ContentFiltered},
		{"quota in message", &fakeSummarizer{err: errors.New("RESOURCE_EXHAUSTED: quota exceeded for project X")}, apperr.QuotaExceeded},
		{"other", &fakeSummarizer{err: errors.New("connection reset")}, apperr.SummaryGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, st := newPipeline(tt.client)
			_, err := p.Generate(context.Background(), testutil.LongTranscript, 60, meeting.General, nil)
			if got := apperr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %q, want %q (err %v)", got, tt.wantKind, err)
			}
			if list, _ := st.List(context.Background()); len(list) != 0 {
				t.Error("a failed attempt must not persist a record")
			}
			if p.Progress() != 0 || !errors.Is(p.LastError(), err) {
				t.Errorf("state after failure = %d %v", p.Progress(), p.LastError())
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	rec, err := Normalize(json.RawMessage(`{
		"overview": "o",
		"chapters": [],
		"highlights": [{"quote":"q","speaker":"s","timestamp":"00:01","importance":"HIGH"}, {"quote":"q2","importance":"critical"}],
		"actionItems": [],
		"participants": []
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Highlights[0].Importance != meeting.High || rec.Highlights[1].Importance != meeting.Medium {
		t.Errorf("importance = %q %q", rec.Highlights[0].Importance, rec.Highlights[1].Importance)
	}
	if rec.ActionItems == nil || rec.Participants == nil {
		t.Error("empty arrays should stay non-nil so they encode as []")
	}
}
