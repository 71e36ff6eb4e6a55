package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/recording"
	"github.com/leonardotrapani/listenin/internal/testutil"
	"github.com/leonardotrapani/listenin/internal/transcriber"
)

type fakeCapture struct {
	mu      sync.Mutex
	frames  chan recording.AudioFrame
	paused  bool
	started int
	err     error
}

func (f *fakeCapture) Start(ctx context.Context) (<-chan recording.AudioFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.started++
	f.frames = make(chan recording.AudioFrame, 8)
	return f.frames, nil
}

func (f *fakeCapture) push(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	ch := f.frames
	f.mu.Unlock()
	ch <- testutil.MockAudioFrame(nil)
}

// end closes the frame stream the way pw-record exiting does.
func (f *fakeCapture) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.frames)
	f.frames = nil
}

func (f *fakeCapture) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
}

func (f *fakeCapture) Resume() {
	f.mu.Lock()
	f.paused = false
	f.mu.Unlock()
}

func (f *fakeCapture) Stop() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames != nil {
		close(f.frames)
		f.frames = nil
	}
	return []byte("RIFF"), nil
}

func (f *fakeCapture) Level() float64 { return 0.5 }

type fakeSummarizer struct {
	mu    sync.Mutex
	err   error
	calls []summarizeCall
	// block, if set, holds Generate until it is closed or ctx is done.
	block chan struct{}
}

type summarizeCall struct {
	transcript string
	seconds    int
	framework  meeting.Framework
}

func (f *fakeSummarizer) Generate(ctx context.Context, transcript string, seconds int, framework meeting.Framework, onProgress func(int)) (*meeting.Summary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, summarizeCall{transcript, seconds, framework})
	err, block := f.err, f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.SummaryGenerationFailed, "summarize", ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	for _, p := range []int{10, 30, 70, 90, 100} {
		if onProgress != nil {
			onProgress(p)
		}
	}
	return &meeting.Summary{ID: "meeting_1", Overview: "done", Transcript: transcript, Framework: framework}, nil
}

func (f *fakeSummarizer) Calls() []summarizeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]summarizeCall(nil), f.calls...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	coord     *Coordinator
	capture   *fakeCapture
	session   *transcriber.Session
	transport *testutil.MockTransport
	summary   *fakeSummarizer
	clock     *clock
}

func newHarness(transport *testutil.MockTransport) *harness {
	h := &harness{
		capture:   &fakeCapture{},
		transport: transport,
		summary:   &fakeSummarizer{},
		clock:     &clock{now: time.Unix(1700000000, 0)},
	}
	h.session = transcriber.NewSession(transport, transcriber.Config{SendTimeout: time.Second})
	h.coord = New(h.capture, h.session, h.summary, nil)
	h.coord.now = h.clock.Now
	return h
}

// sendFrames pushes one frame per response and waits for each to be transcribed.
func (h *harness) sendFrames(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.capture.push(t)
		want := i + 1
		testutil.WaitForCondition(t, func() bool { return len(h.transport.FrameRequests()) == want && h.session.State() == transcriber.Connected }, time.Second)
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from   Status
		action Action
		want   Status
		ok     bool
	}{
		{Idle, Start, Recording, true},
		{Idle, Pause, Idle, false},
		{Idle, Stop, Idle, false},
		{Recording, Pause, Paused, true},
		{Recording, Stop, Idle, true},
		{Recording, Start, Recording, false},
		{Recording, Resume, Recording, false},
		{Paused, Resume, Recording, true},
		{Paused, Stop, Idle, true},
		{Paused, Pause, Paused, false},
		{SummaryPending, Start, SummaryPending, false},
		{SummaryPending, Stop, SummaryPending, false},
	}

	for _, tt := range tests {
		got, err := Next(tt.from, tt.action)
		if tt.ok != (err == nil) || got != tt.want {
			t.Errorf("Next(%s, %s) = %s, %v", tt.from, tt.action, got, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error should wrap ErrInvalidTransition: %v", err)
		}
	}
}

func TestShortRecordingIsNotSummarized(t *testing.T) {
	h := newHarness(testutil.NewMockTransport("Hello ", "world ", "today."))
	ctx := context.Background()

	if err := h.coord.Start(ctx, meeting.Standup); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if h.coord.Status() != Recording {
		t.Fatalf("status = %s", h.coord.Status())
	}

	h.sendFrames(t, 3)
	if got := h.coord.Transcript(); got != "Hello world today." {
		t.Errorf("live transcript = %q", got)
	}

	if err := h.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	h.coord.Wait()

	if h.coord.Status() != Idle {
		t.Errorf("status = %s, want idle", h.coord.Status())
	}
	if len(h.summary.Calls()) != 0 {
		t.Error("a short transcript must not be summarized")
	}
	if got := h.coord.Transcript(); got != "Hello world today." {
		t.Errorf("transcript after stop = %q", got)
	}
	snap := h.coord.Snapshot()
	if snap.Notice != NoticeTooShort {
		t.Errorf("notice = %q", snap.Notice)
	}
	if string(h.coord.LastRecording()) != "RIFF" {
		t.Error("capture blob should be kept")
	}
}

func TestLongRecordingIsSummarized(t *testing.T) {
	h := newHarness(testutil.NewMockTransport(testutil.LongTranscript))
	ctx := context.Background()

	updates, cancel := h.coord.Subscribe()
	defer cancel()

	if err := h.coord.Start(ctx, meeting.Standup); err != nil {
		t.Fatal(err)
	}
	h.sendFrames(t, 1)

	h.clock.Advance(10 * time.Second)
	if err := h.coord.Pause(); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(30 * time.Second)
	if err := h.coord.Resume(); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(25 * time.Second)

	if err := h.coord.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	h.coord.Wait()

	calls := h.summary.Calls()
	if len(calls) != 1 {
		t.Fatalf("summarizer called %d times", len(calls))
	}
	if calls[0].transcript != testutil.LongTranscript || calls[0].framework != meeting.Standup {
		t.Errorf("summarize call = %+v", calls[0])
	}
	if calls[0].seconds != 35 {
		t.Errorf("duration = %ds, want 35s (paused time excluded)", calls[0].seconds)
	}

	if h.coord.Status() != Idle {
		t.Errorf("status = %s", h.coord.Status())
	}
	if cur := h.coord.Current(); cur == nil || cur.ID != "meeting_1" {
		t.Errorf("Current() = %+v", cur)
	}

	var statuses []Status
	for len(updates) > 0 {
		statuses = append(statuses, (<-updates).Status)
	}
	want := []Status{Recording, Paused, Recording, SummaryPending}
	for _, s := range want {
		if !containsStatus(statuses, s) {
			t.Errorf("subscriber never saw %s (saw %v)", s, statuses)
		}
	}
	if statuses[len(statuses)-1] != Idle {
		t.Errorf("last update = %s, want idle", statuses[len(statuses)-1])
	}
}

func TestSummaryFailureAndRetry(t *testing.T) {
	h := newHarness(testutil.NewMockTransport(testutil.LongTranscript))
	h.summary.err = apperr.New(apperr.QuotaExceeded, "summarize", "")
	ctx := context.Background()

	if _, err := h.coord.RetrySummary(ctx); !errors.Is(err, ErrNothingToRetry) {
		t.Errorf("retry before any recording = %v", err)
	}

	h.coord.Start(ctx, meeting.General)
	h.sendFrames(t, 1)
	h.coord.Stop(ctx)
	h.coord.Wait()

	if !apperr.IsKind(h.coord.LastError(), apperr.QuotaExceeded) {
		t.Fatalf("LastError() = %v", h.coord.LastError())
	}
	if h.coord.Current() != nil || h.coord.Transcript() != testutil.LongTranscript {
		t.Error("failed summary must keep the transcript and leave no current record")
	}
	if snap := h.coord.Snapshot(); snap.ErrorKind != apperr.QuotaExceeded || strings.Contains(snap.Error, "summarize") {
		t.Errorf("snapshot error = %q %q", snap.ErrorKind, snap.Error)
	}

	h.summary.mu.Lock()
	h.summary.err = nil
	h.summary.mu.Unlock()

	rec, err := h.coord.RetrySummary(ctx)
	if err != nil {
		t.Fatalf("RetrySummary() error = %v", err)
	}
	if rec.Transcript != testutil.LongTranscript || h.coord.Current() != rec || h.coord.LastError() != nil {
		t.Errorf("retry result = %+v", rec)
	}
	if _, err := h.coord.RetrySummary(ctx); !errors.Is(err, ErrNothingToRetry) {
		t.Errorf("retry after success = %v", err)
	}
}

func TestStopDiscardsInflightResponse(t *testing.T) {
	release := make(chan struct{})
	transport := testutil.NewMockTransport()
	transport.TranscribeFunc = func(ctx context.Context, req api.TranscribeRequest) (*api.TranscribeResponse, error) {
		if req.AudioData == "" {
			return &api.TranscribeResponse{Success: true}, nil
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		// The response resolves regardless of the cancelled request.
		return &api.TranscribeResponse{Success: true, Transcript: "late words"}, nil
	}
	h := newHarness(transport)
	ctx := context.Background()

	h.coord.Start(ctx, meeting.General)
	h.capture.push(t)
	testutil.WaitForCondition(t, func() bool { return h.session.State() == transcriber.Sending }, time.Second)

	if err := h.coord.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	h.coord.Wait()

	if got := h.coord.Transcript(); got != "" {
		t.Errorf("transcript after stop = %q", got)
	}
	if got := h.session.FullTranscript(); got != "" {
		t.Errorf("in-flight response leaked into the session: %q", got)
	}
}

func TestStartFailures(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		transport := testutil.NewMockTransport()
		transport.TranscribeFunc = func(ctx context.Context, req api.TranscribeRequest) (*api.TranscribeResponse, error) {
			return nil, apperr.New(apperr.ConfigurationError, "transcribe", "API key not found")
		}
		h := newHarness(transport)

		err := h.coord.Start(context.Background(), meeting.General)
		if !apperr.IsKind(err, apperr.ConfigurationError) {
			t.Errorf("Start() error = %v", err)
		}
		if h.coord.Status() != Idle || h.capture.started != 0 {
			t.Error("a failed connect must not start capture")
		}
	})

	t.Run("capture", func(t *testing.T) {
		h := newHarness(testutil.NewMockTransport())
		h.capture.err = apperr.New(apperr.PermissionDenied, "acquire", "pw-record not found")

		err := h.coord.Start(context.Background(), meeting.General)
		if !apperr.IsKind(err, apperr.PermissionDenied) {
			t.Errorf("Start() error = %v", err)
		}
		if h.coord.Status() != Idle || h.session.State() != transcriber.Disconnected {
			t.Errorf("status = %s, session = %s", h.coord.Status(), h.session.State())
		}
	})
}

func TestCaptureEndingStopsRecording(t *testing.T) {
	h := newHarness(testutil.NewMockTransport(testutil.LongTranscript))
	ctx := context.Background()

	if err := h.coord.Start(ctx, meeting.Sales); err != nil {
		t.Fatal(err)
	}
	h.sendFrames(t, 1)
	h.capture.end()

	testutil.WaitForCondition(t, func() bool { return h.coord.Status() == Idle }, time.Second)
	snap := h.coord.Snapshot()
	if snap.ErrorKind != apperr.CaptureError || snap.Error == "" {
		t.Errorf("snapshot error = %q %q, want capture error", snap.ErrorKind, snap.Error)
	}
	if snap.Transcript != testutil.LongTranscript {
		t.Errorf("transcript = %q", snap.Transcript)
	}
	if len(h.summary.Calls()) != 0 {
		t.Error("a lost capture must not summarize automatically")
	}
	if h.session.State() != transcriber.Disconnected {
		t.Errorf("session = %s", h.session.State())
	}

	record, err := h.coord.RetrySummary(ctx)
	if err != nil || record == nil {
		t.Fatalf("RetrySummary() = %+v, %v", record, err)
	}
	if calls := h.summary.Calls(); len(calls) != 1 || calls[0].framework != meeting.Sales {
		t.Errorf("summarize calls = %+v", calls)
	}
}

func TestCloseHonoursDeadline(t *testing.T) {
	h := newHarness(testutil.NewMockTransport(testutil.LongTranscript))
	h.summary.block = make(chan struct{})
	defer close(h.summary.block)

	h.coord.Start(context.Background(), meeting.General)
	h.sendFrames(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := h.coord.Close(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() error = %v, want deadline exceeded", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("Close() took %s", d)
	}

	// the abandoned summary is cancelled, not left running
	h.coord.Wait()
	if !apperr.IsKind(h.coord.LastError(), apperr.SummaryGenerationFailed) {
		t.Errorf("LastError() = %v", h.coord.LastError())
	}
	if h.coord.Status() != Idle {
		t.Errorf("status = %s", h.coord.Status())
	}
}

func TestInvalidActions(t *testing.T) {
	h := newHarness(testutil.NewMockTransport())
	ctx := context.Background()

	if err := h.coord.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause() while idle = %v", err)
	}
	if err := h.coord.Stop(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Stop() while idle = %v", err)
	}

	h.coord.Start(ctx, "")
	if err := h.coord.Start(ctx, meeting.Sales); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Start() = %v", err)
	}
	if h.coord.Snapshot().Framework != meeting.General {
		t.Errorf("empty framework should default to general")
	}
	if err := h.coord.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume() while recording = %v", err)
	}
	h.coord.Close(ctx)
	if h.coord.Status() != Idle {
		t.Errorf("Close() left status %s", h.coord.Status())
	}
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
