// Package pipeline coordinates one recording at a time: capture, frame
// transcription and the automatic summary when the recording stops.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/notify"
	"github.com/leonardotrapani/listenin/internal/recording"
	"github.com/leonardotrapani/listenin/internal/transcriber"
)

type Status string
type Action string

const (
	Idle           Status = "idle"
	Recording      Status = "recording"
	Paused         Status = "paused"
	SummaryPending Status = "summary_pending"
)

const (
	Start  Action = "start"
	Pause  Action = "pause"
	Resume Action = "resume"
	Stop   Action = "stop"
)

// NoticeTooShort is set on the snapshot when a stopped recording is not summarized.
const NoticeTooShort = "Transcript too short to summarize"

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNothingToRetry    = errors.New("no failed summary to retry")
)

var transitions = map[Status]map[Action]Status{
	Idle:      {Start: Recording},
	Recording: {Pause: Paused, Stop: Idle},
	Paused:    {Resume: Recording, Stop: Idle},
	// SummaryPending leaves only when the summary finishes.
	SummaryPending: {},
}

// Next returns the status reached by applying a in s.
func Next(s Status, a Action) (Status, error) {
	if next, ok := transitions[s][a]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, a, s)
}

// Capture is the audio source. *recording.Recorder satisfies it.
type Capture interface {
	Start(ctx context.Context) (<-chan recording.AudioFrame, error)
	Pause()
	Resume()
	Stop() ([]byte, error)
	Level() float64
}

// Transcriber is the frame transcription session. *transcriber.Session satisfies it.
type Transcriber interface {
	transcriber.FrameSender
	Connect(ctx context.Context) error
	Disconnect()
	ClearTranscript()
	FullTranscript() string
	Chunks() []meeting.TranscriptChunk
}

// Summarizer is the summary pipeline. *summary.Pipeline satisfies it.
type Summarizer interface {
	Generate(ctx context.Context, transcript string, durationSeconds int, framework meeting.Framework, onProgress func(int)) (*meeting.Summary, error)
}

// Snapshot is the observable state of the coordinator.
type Snapshot struct {
	Status     Status            `json:"status"`
	Framework  meeting.Framework `json:"framework,omitempty"`
	Elapsed    time.Duration     `json:"elapsed"`
	Transcript string            `json:"transcript"`
	Chunks     int               `json:"chunks"`
	Progress   int               `json:"progress"`
	SummaryID  string            `json:"summaryId,omitempty"`
	ErrorKind  apperr.Kind       `json:"errorKind,omitempty"`
	Error      string            `json:"error,omitempty"`
	Notice     string            `json:"notice,omitempty"`
}

type Coordinator struct {
	capture  Capture
	session  Transcriber
	summary  Summarizer
	notifier notify.Notifier
	now      func() time.Time

	opMu sync.Mutex // serializes actions

	mu          sync.Mutex
	status      Status
	framework   meeting.Framework
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	elapsed     time.Duration // frozen when the recording stops
	transcript  string        // frozen when the recording stops
	current     *meeting.Summary
	lastBlob    []byte
	lastErr     error
	notice      string
	progress    int

	cancel       context.CancelFunc
	dispatchDone chan struct{}

	// background summaries run on this context so Close can cut them short
	summaryCtx    context.Context
	cancelSummary context.CancelFunc
	summaryWG     sync.WaitGroup

	subs    map[int]chan Snapshot
	nextSub int
}

func New(capture Capture, session Transcriber, summarizer Summarizer, notifier notify.Notifier) *Coordinator {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	summaryCtx, cancelSummary := context.WithCancel(context.Background())
	return &Coordinator{
		capture:       capture,
		session:       session,
		summary:       summarizer,
		notifier:      notifier,
		now:           time.Now,
		status:        Idle,
		summaryCtx:    summaryCtx,
		cancelSummary: cancelSummary,
		subs:          make(map[int]chan Snapshot),
	}
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Start clears the previous transcript, connects the transcription session
// and begins capture. The recording outlives ctx; only Stop ends it.
func (c *Coordinator) Start(ctx context.Context, framework meeting.Framework) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, err := Next(c.Status(), Start); err != nil {
		return err
	}
	if framework == "" {
		framework = meeting.General
	}

	c.session.ClearTranscript()
	if err := c.session.Connect(ctx); err != nil {
		c.fail(err)
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	frames, err := c.capture.Start(runCtx)
	if err != nil {
		cancel()
		c.session.Disconnect()
		c.fail(err)
		return err
	}

	done := make(chan struct{})
	dispatcher := transcriber.NewDispatcher(c.session, c.frameError)
	go func() {
		dispatcher.Run(runCtx, frames)
		close(done)
		if runCtx.Err() == nil {
			c.captureEnded(done)
		}
	}()

	c.mu.Lock()
	c.status = Recording
	c.framework = framework
	c.startedAt = c.now()
	c.pausedTotal = 0
	c.elapsed = 0
	c.transcript = ""
	c.current = nil
	c.lastBlob = nil
	c.lastErr = nil
	c.notice = ""
	c.progress = 0
	c.cancel = cancel
	c.dispatchDone = done
	c.mu.Unlock()

	log.Printf("Pipeline: recording started (framework: %s)", framework)
	c.notifier.RecordingStarted()
	c.publish()
	return nil
}

func (c *Coordinator) Pause() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	next, err := Next(c.status, Pause)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.capture.Pause()
	c.status = next
	c.pausedAt = c.now()
	c.mu.Unlock()

	log.Printf("Pipeline: recording paused")
	c.notifier.RecordingPaused()
	c.publish()
	return nil
}

func (c *Coordinator) Resume() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	next, err := Next(c.status, Resume)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.pausedTotal += c.now().Sub(c.pausedAt)
	c.capture.Resume()
	c.status = next
	c.mu.Unlock()

	log.Printf("Pipeline: recording resumed")
	c.notifier.RecordingResumed()
	c.publish()
	return nil
}

// Stop ends the recording. In-flight transcription is discarded. When the
// transcript is long enough the summary starts in the background and the
// status becomes SummaryPending until it finishes. The summary is not bound
// to ctx; Close bounds it.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stop(nil, nil)
}

// captureEnded handles a capture stream that closed without Stop. The
// recording ends with a CaptureError and the transcript kept for RetrySummary.
func (c *Coordinator) captureEnded(done chan struct{}) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	err := apperr.New(apperr.CaptureError, "capture", "audio stream ended unexpectedly")
	if stopErr := c.stop(done, err); stopErr != nil {
		log.Printf("Pipeline: capture ended: %v", stopErr)
	}
}

// stop must be called with opMu held. With a cause, it only acts while done is
// still the running dispatcher, records cause and skips the summary.
func (c *Coordinator) stop(done chan struct{}, cause error) error {
	c.mu.Lock()
	if cause != nil && c.dispatchDone != done {
		c.mu.Unlock()
		return nil
	}
	if _, err := Next(c.status, Stop); err != nil {
		c.mu.Unlock()
		return err
	}
	now := c.now()
	if c.status == Paused {
		c.pausedTotal += now.Sub(c.pausedAt)
	}
	c.elapsed = now.Sub(c.startedAt) - c.pausedTotal
	cancel, dispatchDone := c.cancel, c.dispatchDone
	c.cancel, c.dispatchDone = nil, nil
	c.mu.Unlock()

	// Disconnect first so the frame still queued in the dispatcher is not sent.
	c.session.Disconnect()
	cancel()
	blob, err := c.capture.Stop()
	if err != nil {
		log.Printf("Pipeline: stop capture: %v", err)
	}
	<-dispatchDone

	transcript := c.session.FullTranscript()

	c.mu.Lock()
	c.lastBlob = blob
	c.transcript = transcript
	elapsed, framework := c.elapsed, c.framework
	long := utf8.RuneCountInString(transcript) >= meeting.MinSummaryLength
	switch {
	case cause != nil:
		c.status = Idle
		c.lastErr = cause
	case long:
		c.status = SummaryPending
	default:
		c.status = Idle
		c.notice = NoticeTooShort
	}
	c.mu.Unlock()

	if cause != nil {
		log.Printf("Pipeline: recording ended after %s: %v", elapsed.Round(time.Second), cause)
		c.notifier.RecordingEnded()
		c.notifier.Error(apperr.UserMessage(cause))
		c.publish()
		return nil
	}

	log.Printf("Pipeline: recording stopped after %s (%d characters transcribed)", elapsed.Round(time.Second), utf8.RuneCountInString(transcript))
	c.notifier.RecordingEnded()
	c.publish()

	if !long {
		c.notifier.Notice(NoticeTooShort)
		return nil
	}

	c.notifier.Summarizing()
	c.summaryWG.Add(1)
	go func() {
		defer c.summaryWG.Done()
		c.runSummary(c.summaryCtx, transcript, elapsed, framework)
	}()
	return nil
}

// RetrySummary summarizes the last transcript again after a failed attempt.
// It blocks until the attempt finishes.
func (c *Coordinator) RetrySummary(ctx context.Context) (*meeting.Summary, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.status != Idle {
		status := c.status
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot retry summary while %s", ErrInvalidTransition, status)
	}
	if c.current != nil || c.lastErr == nil || c.transcript == "" {
		c.mu.Unlock()
		return nil, ErrNothingToRetry
	}
	transcript, elapsed, framework := c.transcript, c.elapsed, c.framework
	c.status = SummaryPending
	c.mu.Unlock()

	c.notifier.Summarizing()
	c.publish()
	return c.runSummary(ctx, transcript, elapsed, framework)
}

func (c *Coordinator) runSummary(ctx context.Context, transcript string, elapsed time.Duration, framework meeting.Framework) (*meeting.Summary, error) {
	c.mu.Lock()
	c.lastErr = nil
	c.notice = ""
	c.mu.Unlock()

	record, err := c.summary.Generate(ctx, transcript, int(elapsed.Seconds()), framework, func(p int) {
		c.mu.Lock()
		c.progress = p
		c.mu.Unlock()
		c.publish()
	})

	c.mu.Lock()
	c.status = Idle
	if err != nil {
		c.lastErr = err
		c.progress = 0
	} else {
		c.current = record
	}
	c.mu.Unlock()

	if err != nil {
		log.Printf("Pipeline: summary failed: %v", err)
		c.notifier.Error(apperr.UserMessage(err))
	} else {
		log.Printf("Pipeline: summary ready: %s", record.ID)
		c.notifier.SummaryReady(record.Overview)
	}
	c.publish()
	return record, err
}

// Wait blocks until a background summary, if any, has finished.
func (c *Coordinator) Wait() {
	c.summaryWG.Wait()
}

// Close stops an active recording and waits for its summary until ctx is
// done. A summary still running then is cancelled and ctx's error returned.
func (c *Coordinator) Close(ctx context.Context) error {
	if s := c.Status(); s == Recording || s == Paused {
		if err := c.Stop(ctx); err != nil {
			log.Printf("Pipeline: stop on close: %v", err)
		}
	}

	finished := make(chan struct{})
	go func() {
		c.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		c.cancelSummary()
		return nil
	case <-ctx.Done():
		c.cancelSummary()
		log.Printf("Pipeline: summary abandoned on close: %v", ctx.Err())
		return ctx.Err()
	}
}

func (c *Coordinator) frameError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	if apperr.KindOf(err).Fatal() || apperr.IsKind(err, apperr.QuotaExceeded) {
		c.notifier.Error(apperr.UserMessage(err))
	}
	c.publish()
}

func (c *Coordinator) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	log.Printf("Pipeline: %v", err)
	c.notifier.Error(apperr.UserMessage(err))
	c.publish()
}

// Transcript is the live transcript while recording, else the transcript of
// the last recording.
func (c *Coordinator) Transcript() string {
	c.mu.Lock()
	status, frozen := c.status, c.transcript
	c.mu.Unlock()
	if status == Recording || status == Paused {
		return c.session.FullTranscript()
	}
	return frozen
}

// Current is the summary of the last recording, nil until one succeeds.
func (c *Coordinator) Current() *meeting.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// LastRecording is the WAV blob of the last stopped recording.
func (c *Coordinator) LastRecording() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBlob
}

func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Level is the capture loudness in [0, 1].
func (c *Coordinator) Level() float64 {
	return c.capture.Level()
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	status := c.status
	s := Snapshot{
		Status:    status,
		Framework: c.framework,
		Progress:  c.progress,
		Notice:    c.notice,
	}
	switch status {
	case Recording:
		s.Elapsed = c.now().Sub(c.startedAt) - c.pausedTotal
	case Paused:
		s.Elapsed = c.pausedAt.Sub(c.startedAt) - c.pausedTotal
	default:
		s.Elapsed = c.elapsed
	}
	if c.current != nil {
		s.SummaryID = c.current.ID
	}
	if c.lastErr != nil {
		s.ErrorKind = apperr.KindOf(c.lastErr)
		s.Error = apperr.UserMessage(c.lastErr)
	}
	s.Transcript = c.transcript
	c.mu.Unlock()

	if status == Recording || status == Paused {
		s.Transcript = c.session.FullTranscript()
		s.Chunks = len(c.session.Chunks())
	}
	return s
}

// Subscribe returns a channel receiving a snapshot after every change. Slow
// subscribers miss snapshots rather than block the coordinator.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Coordinator) publish() {
	snap := c.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
