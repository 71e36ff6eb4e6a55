// Package summary turns a finished transcript into a persisted meeting record.
package summary

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/meeting"
)

// Progress milestones reported by Generate.
const (
	ProgressValidated  = 10
	ProgressDispatched = 30
	ProgressReceived   = 70
	ProgressNormalized = 90
	ProgressPersisted  = 100
)

// Summarizer is the summarize endpoint. *api.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, req api.SummarizeRequest) (*api.SummarizeResponse, error)
}

// Saver persists a finished record. *store.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, record meeting.Summary) error
}

type Pipeline struct {
	client Summarizer
	store  Saver
	now    func() time.Time

	mu         sync.Mutex
	progress   int
	generating bool
	lastErr    error
}

func New(client Summarizer, store Saver) *Pipeline {
	return &Pipeline{client: client, store: store, now: time.Now}
}

// Generate summarizes transcript and persists the result. onProgress, if set,
// receives each milestone in increasing order. A failed attempt persists
// nothing and may be retried by calling Generate again.
func (p *Pipeline) Generate(ctx context.Context, transcript string, durationSeconds int, framework meeting.Framework, onProgress func(int)) (*meeting.Summary, error) {
	if utf8.RuneCountInString(transcript) < meeting.MinSummaryLength {
		err := apperr.New(apperr.InputTooShort, "summarize",
			fmt.Sprintf("transcript has %d characters, need at least %d", utf8.RuneCountInString(transcript), meeting.MinSummaryLength))
		p.finish(err)
		return nil, err
	}

	p.mu.Lock()
	p.generating = true
	p.lastErr = nil
	p.mu.Unlock()

	report := func(v int) {
		p.mu.Lock()
		p.progress = v
		p.mu.Unlock()
		if onProgress != nil {
			onProgress(v)
		}
	}

	report(ProgressValidated)
	duration := meeting.FormatDuration(durationSeconds)

	report(ProgressDispatched)
	resp, err := p.client.Summarize(ctx, api.SummarizeRequest{
		Transcript: transcript,
		Duration:   duration,
		Framework:  string(framework),
	})
	if err != nil {
		err = classify(err)
		log.Printf("Summary: generation failed: %v", err)
		p.finish(err)
		return nil, err
	}

	report(ProgressReceived)
	if !resp.Success || len(resp.Summary) == 0 {
		err := apperr.New(apperr.MalformedResponse, "summarize", "response carried no summary")
		p.finish(err)
		return nil, err
	}
	record, err := Normalize(resp.Summary)
	if err != nil {
		err = apperr.Wrap(apperr.MalformedResponse, "summarize", err)
		log.Printf("Summary: %v", err)
		p.finish(err)
		return nil, err
	}

	now := p.now()
	record.ID = meeting.NewID(now)
	record.RecordedAt = now
	record.Duration = duration
	record.Transcript = transcript
	record.Framework = framework
	report(ProgressNormalized)

	if err := p.store.Save(ctx, *record); err != nil {
		err = apperr.Wrapf(apperr.SummaryGenerationFailed, "summarize", err, "persist meeting")
		log.Printf("Summary: %v", err)
		p.finish(err)
		return nil, err
	}

	report(ProgressPersisted)
	p.finish(nil)
	log.Printf("Summary: saved meeting %s (%s, %d action items)", record.ID, duration, len(record.ActionItems))
	return record, nil
}

func (p *Pipeline) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generating = false
	p.lastErr = err
	if err != nil {
		p.progress = 0
	}
}

// Progress is the last reported milestone, or 0 after a failure.
func (p *Pipeline) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

func (p *Pipeline) Generating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generating
}

func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func classify(err error) error {
	switch apperr.KindOf(err) {
	case apperr.QuotaExceeded, apperr.ContentFiltered, apperr.ConfigurationError,
		apperr.RateLimitExceeded, apperr.PermissionError, apperr.InputTooShort,
		apperr.MalformedResponse, apperr.SummaryGenerationFailed:
		return err
	}
	if kind := apperr.FromMessage(err.Error(), ""); kind == apperr.QuotaExceeded || kind == apperr.ContentFiltered {
		return apperr.Wrap(kind, "summarize", err)
	}
	return apperr.Wrap(apperr.SummaryGenerationFailed, "summarize", err)
}
