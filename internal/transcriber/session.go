package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/recording"
)

// Phase tells the stateless endpoint whether to start a fresh transcription
// or continue the previous one.
type Phase int

const (
	SessionStart Phase = iota
	Continuation
)

func (p Phase) String() string {
	if p == SessionStart {
		return "session-start"
	}
	return "continuation"
}

// IsFirst is the wire encoding of the phase.
func (p Phase) IsFirst() bool { return p == SessionStart }

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Sending
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Sending:
		return "sending"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transport is the transcribe endpoint. *api.Client satisfies it.
type Transport interface {
	Transcribe(ctx context.Context, req api.TranscribeRequest) (*api.TranscribeResponse, error)
}

var ErrSendInFlight = errors.New("transcriber: a frame send is already in flight")

type Config struct {
	SendTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{SendTimeout: 5 * time.Second}
}

// Session is a client of the transcribe endpoint that keeps the ordered
// transcript for one recording. At most one send is in flight at a time.
type Session struct {
	transport   Transport
	sendTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	phase    Phase
	start    time.Time
	epoch    uint64
	chunks   []meeting.TranscriptChunk
	full     strings.Builder
	lastErr  error
	inflight context.CancelFunc
}

func NewSession(transport Transport, config Config) *Session {
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultConfig().SendTimeout
	}
	return &Session{
		transport:   transport,
		sendTimeout: config.SendTimeout,
		now:         time.Now,
		state:       Disconnected,
	}
}

// Connect probes the endpoint with an empty frame. A probe that reports a
// missing credential fails with ConfigurationError, anything else with
// ServiceUnavailable.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.state = Connecting
	s.lastErr = nil
	s.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	_, err := s.transport.Transcribe(probeCtx, api.TranscribeRequest{AudioData: "", IsFirst: true})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = Disconnected
		if apperr.IsKind(err, apperr.ConfigurationError) {
			s.lastErr = err
		} else {
			s.lastErr = apperr.Wrap(apperr.ServiceUnavailable, "connect", err)
		}
		log.Printf("transcriber: connect failed: %v", err)
		return s.lastErr
	}

	s.state = Connected
	s.phase = SessionStart
	s.start = s.now()
	log.Printf("transcriber: connected")
	return nil
}

// SendFrame transcribes one frame. Outside the Connected state it is a no-op.
// A response that arrives after Disconnect or ClearTranscript is discarded.
func (s *Session) SendFrame(ctx context.Context, frame recording.AudioFrame) error {
	s.mu.Lock()
	switch s.state {
	case Connected:
	case Sending:
		s.mu.Unlock()
		return ErrSendInFlight
	default:
		s.mu.Unlock()
		return nil
	}
	epoch := s.epoch
	phase := s.phase
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	s.inflight = cancel
	s.state = Sending
	s.mu.Unlock()
	defer cancel()

	resp, err := s.transport.Transcribe(sendCtx, api.TranscribeRequest{
		AudioData: recording.EncodeFrameBase64(frame),
		IsFirst:   phase.IsFirst(),
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		// Session was stopped or cleared while this send was in flight.
		return nil
	}
	s.inflight = nil
	s.state = Connected

	if err != nil {
		s.lastErr = classifySendError(err)
		log.Printf("transcriber: send failed: %v", err)
		return s.lastErr
	}

	s.lastErr = nil
	s.phase = Continuation
	if resp.Transcript == "" {
		return nil
	}

	ts := s.now().Sub(s.start).Milliseconds()
	if n := len(s.chunks); n > 0 && ts < s.chunks[n-1].TimestampMs {
		ts = s.chunks[n-1].TimestampMs
	}
	s.chunks = append(s.chunks, meeting.TranscriptChunk{
		Text:        resp.Transcript,
		TimestampMs: ts,
		IsFinal:     true,
	})
	s.full.WriteString(resp.Transcript)
	return nil
}

// Disconnect drops any in-flight send and keeps the transcript.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortInflight()
	s.state = Disconnected
	log.Printf("transcriber: disconnected")
}

// ClearTranscript wipes the transcript and restarts the session clock.
// Connection state is unchanged.
func (s *Session) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Sending {
		s.abortInflight()
		s.state = Connected
	}
	s.epoch++
	s.chunks = nil
	s.full.Reset()
	s.start = s.now()
	s.phase = SessionStart
	s.lastErr = nil
}

func (s *Session) abortInflight() {
	s.epoch++
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Chunks() []meeting.TranscriptChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]meeting.TranscriptChunk(nil), s.chunks...)
}

func (s *Session) FullTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full.String()
}

// LastError is the classified error of the most recent connect or send.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func classifySendError(err error) error {
	if apperr.IsQuotaMessage(err.Error()) {
		if apperr.IsKind(err, apperr.QuotaExceeded) {
			return err
		}
		return apperr.Wrap(apperr.QuotaExceeded, "send", err)
	}
	switch apperr.KindOf(err) {
	case apperr.QuotaExceeded, apperr.ConfigurationError, apperr.RateLimitExceeded, apperr.PermissionError:
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrapf(apperr.TranscriptionFailed, "send", err, "frame send timed out")
	}
	if apperr.FromMessage(err.Error(), "") == apperr.ConfigurationError {
		return apperr.Wrap(apperr.ConfigurationError, "send", err)
	}
	if apperr.IsKind(err, apperr.TranscriptionFailed) {
		return err
	}
	return apperr.Wrap(apperr.TranscriptionFailed, "send", err)
}
