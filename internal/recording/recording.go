package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/listenin/internal/apperr"
)

// AudioFrame is one fixed-size buffer of mono signed 16-bit samples.
type AudioFrame struct {
	Samples   []int16
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	FrameSamples      int
	Device            string
	ChannelBufferSize int
	LevelInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		FrameSamples:      4096,
		Device:            "",
		ChannelBufferSize: 8,
		LevelInterval:     16 * time.Millisecond,
	}
}

// FrameDuration is the audio time covered by one frame.
func (c Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameSamples) * time.Second / time.Duration(c.SampleRate)
}

// OpenFunc opens a raw s16le stream matching cfg.
type OpenFunc func(ctx context.Context, cfg Config) (io.ReadCloser, error)

// ProbeFunc checks that a capture device can be opened.
type ProbeFunc func(ctx context.Context, cfg Config) error

type Option func(*Recorder)

// WithOpener replaces the pw-record stream, e.g. with a file or test buffer.
func WithOpener(open OpenFunc) Option {
	return func(r *Recorder) { r.open = open }
}

func WithProbe(probe ProbeFunc) Option {
	return func(r *Recorder) { r.probe = probe }
}

type Recorder struct {
	config Config
	open   OpenFunc
	probe  ProbeFunc

	acquired  atomic.Bool
	recording atomic.Bool
	paused    atomic.Bool
	level     atomic.Uint64 // math.Float64bits of the current level

	mu       sync.Mutex // guards cancel, stream, pcm, snapshot, lastBlob
	cancel   context.CancelFunc
	stream   io.ReadCloser
	pcm      []byte
	snapshot []int16
	lastBlob []byte

	meter *levelMeter
	wg    sync.WaitGroup
}

func NewRecorder(config Config, opts ...Option) *Recorder {
	r := &Recorder{
		config: config,
		open:   openPwRecord,
		probe:  probePipeWire,
		meter:  newLevelMeter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func NewDefaultRecorder() *Recorder { return NewRecorder(DefaultConfig()) }

func (r *Recorder) Config() Config { return r.config }

func (r *Recorder) IsRecording() bool { return r.recording.Load() }

func (r *Recorder) IsPaused() bool { return r.paused.Load() }

// Level is the normalized loudness in [0, 1]; zero while paused or stopped.
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

// Acquire validates the configuration and checks the capture device.
// A missing or refused device yields PermissionDenied; anything else CaptureError.
func (r *Recorder) Acquire(ctx context.Context) error {
	if err := r.validateConfig(); err != nil {
		return apperr.Wrap(apperr.CaptureError, "acquire", err)
	}
	if err := r.probe(ctx, r.config); err != nil {
		if apperr.KindOf(err) != "" {
			return err
		}
		return apperr.Wrap(apperr.CaptureError, "acquire", err)
	}
	r.acquired.Store(true)
	return nil
}

// Start begins capture. Frames stop when ctx is cancelled or Stop is called;
// the returned channel is closed when capture ends.
func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, error) {
	if r.recording.Load() {
		return nil, fmt.Errorf("already recording")
	}
	if !r.acquired.Load() {
		if err := r.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	recordingCtx, cancel := context.WithCancel(ctx)

	stream, err := r.open(recordingCtx, r.config)
	if err != nil {
		cancel()
		return nil, apperr.Wrap(apperr.CaptureError, "start", err)
	}

	frameCh := make(chan AudioFrame, r.config.ChannelBufferSize)

	r.mu.Lock()
	r.cancel = cancel
	r.stream = stream
	r.pcm = r.pcm[:0]
	r.snapshot = nil
	r.lastBlob = nil
	r.mu.Unlock()

	r.paused.Store(false)
	r.recording.Store(true)

	r.wg.Add(2)
	go r.captureLoop(recordingCtx, stream, frameCh)
	go r.levelLoop(recordingCtx)

	return frameCh, nil
}

// Pause stops frame emission and zeroes the level but keeps the capture open.
func (r *Recorder) Pause() {
	if !r.recording.Load() {
		return
	}
	r.paused.Store(true)
	r.level.Store(0)

	// drop pre-pause audio so the meter restarts from silence on Resume
	r.mu.Lock()
	r.snapshot = nil
	r.mu.Unlock()
}

func (r *Recorder) Resume() {
	if !r.recording.Load() {
		return
	}
	r.paused.Store(false)
}

// Stop releases the capture and returns everything recorded, paused audio
// excluded, as a WAV blob. Calling Stop again returns the same blob.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	cancel := r.cancel
	stream := r.stream
	r.cancel = nil
	r.stream = nil
	r.mu.Unlock()

	if cancel == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.lastBlob, nil
	}

	cancel()
	// Closing unblocks a pending Read on the stream.
	closeErr := stream.Close()
	r.wg.Wait()

	r.level.Store(0)
	r.paused.Store(false)
	r.acquired.Store(false)

	r.mu.Lock()
	r.lastBlob = WAV(r.pcm, r.config.SampleRate, r.config.Channels)
	blob := r.lastBlob
	r.mu.Unlock()

	if closeErr != nil && !errors.Is(closeErr, context.Canceled) {
		log.Printf("Recording: close stream: %v", closeErr)
	}
	return blob, nil
}

func (r *Recorder) captureLoop(ctx context.Context, stream io.Reader, frameCh chan<- AudioFrame) {
	defer func() {
		close(frameCh)
		r.recording.Store(false)
		r.wg.Done()
	}()

	buffer := make([]byte, r.config.FrameSamples*2)
	var droppedCount int
	lastDropLog := time.Now()

	for {
		n, readErr := io.ReadFull(stream, buffer)
		n -= n % 2
		if n > 0 && !r.paused.Load() {
			samples := DecodeS16LE(buffer[:n])
			r.record(buffer[:n], samples)

			frame := AudioFrame{Samples: samples, Timestamp: time.Now()}
			select {
			case frameCh <- frame:
			case <-ctx.Done():
				return
			default:
				droppedCount++
				if time.Since(lastDropLog) > time.Second {
					log.Printf("Recording: dropped %d frames due to backpressure", droppedCount)
					lastDropLog = time.Now()
					droppedCount = 0
				}
			}
		}

		if readErr != nil {
			if ctx.Err() == nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
				log.Printf("Recording: read audio: %v", readErr)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// record appends raw bytes to the blob and keeps the newest samples for the level meter.
func (r *Recorder) record(raw []byte, samples []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pcm = append(r.pcm, raw...)
	r.snapshot = append(r.snapshot, samples...)
	if len(r.snapshot) > fftSize {
		r.snapshot = append([]int16(nil), r.snapshot[len(r.snapshot)-fftSize:]...)
	}
}

func (r *Recorder) levelLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.LevelInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.level.Store(0)
			return
		case <-ticker.C:
			if r.paused.Load() {
				r.level.Store(0)
				r.meter.reset()
				continue
			}
			r.mu.Lock()
			snapshot := append([]int16(nil), r.snapshot...)
			r.mu.Unlock()
			r.level.Store(math.Float64bits(r.meter.level(snapshot)))
		}
	}
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels != 1 {
		return fmt.Errorf("invalid Channels: %d (mono only)", r.config.Channels)
	}
	if r.config.FrameSamples <= 0 {
		return fmt.Errorf("invalid FrameSamples: %d", r.config.FrameSamples)
	}
	if r.config.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	}
	if r.config.LevelInterval <= 0 {
		return fmt.Errorf("invalid LevelInterval: %v", r.config.LevelInterval)
	}
	return nil
}

func buildPwRecordArgs(cfg Config) []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(cfg.SampleRate),
		"--channels", strconv.Itoa(cfg.Channels),
		"-", // stdout
	}
	if cfg.Device != "" {
		args = append(args, "--target", cfg.Device)
	}
	return args
}

type cmdStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (s *cmdStream) Close() error {
	_ = s.ReadCloser.Close()
	// CommandContext kills the process once the recording context is cancelled.
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func openPwRecord(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "pw-record", buildPwRecordArgs(cfg)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start pw-record: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("Recording stderr: %s", scanner.Text())
		}
	}()

	return &cmdStream{ReadCloser: stdout, cmd: cmd}, nil
}

func probePipeWire(ctx context.Context, cfg Config) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return apperr.Wrapf(apperr.PermissionDenied, "acquire", err, "pw-record not found (install pipewire-tools)")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return apperr.Wrapf(apperr.PermissionDenied, "acquire", err, "PipeWire not running or microphone not accessible")
	}
	if cfg.Device != "" {
		if err := exec.CommandContext(checkCtx, "pw-cli", "info", cfg.Device).Run(); err != nil {
			return apperr.Wrapf(apperr.PermissionDenied, "acquire", err, "capture device %q unavailable", cfg.Device)
		}
	}
	return nil
}
