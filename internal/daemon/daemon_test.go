package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/bus"
	"github.com/leonardotrapani/listenin/internal/notify"
	"github.com/leonardotrapani/listenin/internal/pipeline"
	"github.com/leonardotrapani/listenin/internal/recording"
	"github.com/leonardotrapani/listenin/internal/server"
	"github.com/leonardotrapani/listenin/internal/store"
	"github.com/leonardotrapani/listenin/internal/summary"
	"github.com/leonardotrapani/listenin/internal/testutil"
	"github.com/leonardotrapani/listenin/internal/transcriber"
)

// pipeOpener yields frames zero-filled frames, then blocks until the stream is closed.
func pipeOpener(frames int) recording.OpenFunc {
	return func(ctx context.Context, cfg recording.Config) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			if frames > 0 {
				if _, err := pw.Write(make([]byte, frames*cfg.FrameSamples*2)); err != nil {
					return
				}
			}
			<-ctx.Done()
			pw.Close()
		}()
		return pr, nil
	}
}

type harness struct {
	daemon  *Daemon
	backend *testutil.MockBackend
	store   *store.Store
	errCh   chan error
}

func startDaemon(t *testing.T, frames int) *harness {
	t.Helper()
	t.Setenv(bus.RuntimeEnv, t.TempDir())

	backend := testutil.NewMockBackend()
	backend.TranscribeText = "Alice: we ship on Friday and Bob updates the changelog today. "
	ts := httptest.NewServer(server.New(testutil.TestConfig(), backend).Handler())
	t.Cleanup(ts.Close)

	recCfg := recording.DefaultConfig()
	recCfg.FrameSamples = 160
	recCfg.LevelInterval = time.Millisecond
	rec := recording.NewRecorder(recCfg,
		recording.WithProbe(func(context.Context, recording.Config) error { return nil }),
		recording.WithOpener(pipeOpener(frames)),
	)

	client := api.NewClient(ts.URL, nil)
	session := transcriber.NewSession(client, transcriber.Config{SendTimeout: 2 * time.Second})
	st := store.New(store.NewMemoryKV(), store.DefaultMaxRecords)
	coord := pipeline.New(rec, session, summary.New(client, st), notify.Nop{})

	h := &harness{
		daemon:  New(coord, st),
		backend: backend,
		store:   st,
		errCh:   make(chan error, 1),
	}
	go func() {
		h.errCh <- h.daemon.Run()
	}()

	// Wait for daemon to be ready by trying to connect
	maxAttempts := 50
	for i := range maxAttempts {
		if _, err := bus.SendCommand('v', ""); err == nil {
			break
		}
		if i == maxAttempts-1 {
			t.Fatal("daemon failed to start within timeout")
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Cleanup(func() {
		bus.SendCommand('q', "")
		select {
		case <-h.errCh:
		case <-time.After(5 * time.Second):
			t.Error("daemon did not exit within timeout")
		}
	})
	return h
}

func send(t *testing.T, cmd byte, arg string) string {
	t.Helper()
	out, err := bus.SendCommand(cmd, arg)
	if err != nil {
		t.Fatalf("command %q failed: %v", cmd, err)
	}
	return out
}

func snapshot(t *testing.T) pipeline.Snapshot {
	t.Helper()
	out := send(t, 'j', "")
	data, ok := strings.CutPrefix(strings.TrimSpace(out), "SNAPSHOT ")
	if !ok {
		t.Fatalf("unexpected snapshot reply: %q", out)
	}
	var s pipeline.Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return s
}

func TestRecordingLifecycle(t *testing.T) {
	h := startDaemon(t, 3)

	if out := send(t, 'v', ""); out != "STATUS proto="+bus.ProtoVer+"\n" {
		t.Errorf("version reply = %q", out)
	}
	if out := send(t, 'p', ""); !strings.HasPrefix(out, "ERR invalid transition") {
		t.Errorf("pause while idle = %q", out)
	}
	if out := send(t, 'r', "retro"); !strings.HasPrefix(out, "ERR unknown framework") {
		t.Errorf("unknown framework = %q", out)
	}

	if out := send(t, 'r', "standup"); out != "OK started\n" {
		t.Fatalf("start = %q", out)
	}
	if out := send(t, 's', ""); !strings.HasPrefix(out, "STATUS status=recording framework=standup") {
		t.Errorf("status = %q", out)
	}

	coord := h.daemon.Coordinator()
	testutil.WaitForCondition(t, func() bool {
		return len([]rune(coord.Transcript())) >= 50
	}, 3*time.Second)

	if out := send(t, 'p', ""); out != "OK paused\n" {
		t.Errorf("pause = %q", out)
	}
	if out := send(t, 'u', ""); out != "OK resumed\n" {
		t.Errorf("resume = %q", out)
	}
	if out := send(t, 'x', ""); out != "OK stopped\n" {
		t.Fatalf("stop = %q", out)
	}

	coord.Wait()
	s := snapshot(t)
	if s.Status != pipeline.Idle || s.SummaryID == "" || s.Progress != 100 {
		t.Fatalf("snapshot after summary = %+v", s)
	}

	records, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(records) != 1 || records[0].ID != s.SummaryID || records[0].Framework != "standup" {
		t.Errorf("stored records = %+v", records)
	}
	if h.backend.SummarizeCalls() != 1 {
		t.Errorf("summarize calls = %d", h.backend.SummarizeCalls())
	}
}

func TestToggleShortRecording(t *testing.T) {
	h := startDaemon(t, 0)

	if out := send(t, 't', ""); out != "OK toggled\n" {
		t.Fatalf("first toggle = %q", out)
	}
	if s := snapshot(t); s.Status != pipeline.Recording || s.Framework != "general" {
		t.Errorf("after first toggle = %+v", s)
	}

	if out := send(t, 't', ""); out != "OK toggled\n" {
		t.Fatalf("second toggle = %q", out)
	}
	s := snapshot(t)
	if s.Status != pipeline.Idle || s.Notice != pipeline.NoticeTooShort {
		t.Errorf("after second toggle = %+v", s)
	}
	if h.backend.SummarizeCalls() != 0 {
		t.Error("a silent recording must not be summarized")
	}
	if out := send(t, 'R', ""); !strings.HasPrefix(out, "ERR no failed summary") {
		t.Errorf("retry = %q", out)
	}
}

func TestStartFailureReportsKind(t *testing.T) {
	t.Setenv(bus.RuntimeEnv, t.TempDir())

	// the server runs without a backend, so the probe reports a missing key
	ts := httptest.NewServer(server.New(testutil.TestConfig(), nil).Handler())
	defer ts.Close()

	client := api.NewClient(ts.URL, nil)
	rec := recording.NewRecorder(recording.DefaultConfig(), recording.WithOpener(pipeOpener(0)))
	coord := pipeline.New(rec, transcriber.NewSession(client, transcriber.DefaultConfig()), nil, notify.Nop{})
	d := New(coord, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- d.Run() }()
	testutil.WaitForCondition(t, func() bool {
		_, err := bus.SendCommand('v', "")
		return err == nil
	}, 2*time.Second)
	defer func() {
		bus.SendCommand('q', "")
		<-errCh
	}()

	out := send(t, 'r', "")
	if !strings.HasPrefix(out, "ERR kind=configuration_error ") {
		t.Errorf("start reply = %q", out)
	}
	if strings.Contains(out, "API key not found") {
		t.Errorf("reply should carry the user message only: %q", out)
	}
}

func TestEventsFeed(t *testing.T) {
	startDaemon(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, err := bus.DialEvents(ctx)
	if err != nil {
		t.Fatalf("DialEvents() = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first pipeline.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if first.Status != pipeline.Idle {
		t.Errorf("initial status = %q", first.Status)
	}

	send(t, 'r', "brainstorm")

	var next pipeline.Snapshot
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if next.Status != pipeline.Recording || next.Framework != "brainstorm" {
		t.Errorf("snapshot after start = %+v", next)
	}

	send(t, 'x', "")
}

func TestUnknownCommand(t *testing.T) {
	startDaemon(t, 0)

	if out := send(t, 'Z', ""); out != "ERR unknown='Z'\n" {
		t.Errorf("reply = %q", out)
	}
}
