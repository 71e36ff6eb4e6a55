//go:build integration

package main

import (
	"context"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
	"github.com/leonardotrapani/listenin/internal/chat"
	"github.com/leonardotrapani/listenin/internal/config"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/pipeline"
	"github.com/leonardotrapani/listenin/internal/recording"
	"github.com/leonardotrapani/listenin/internal/server"
	"github.com/leonardotrapani/listenin/internal/store"
	"github.com/leonardotrapani/listenin/internal/summary"
	"github.com/leonardotrapani/listenin/internal/testutil"
	"github.com/leonardotrapani/listenin/internal/transcriber"
)

const testTimeout = 90 * time.Second

var testProviders = []string{"gemini", "openai", "groq"}

func loadTestConfig(t *testing.T) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		t.Logf("warning: could not load config: %v", err)
		return config.DefaultConfig()
	}
	return cfg
}

// liveClient serves the real backend for providerName through the HTTP
// server and returns a client for it.
func liveClient(t *testing.T, cfg *config.Config, providerName string) *api.Client {
	t.Helper()

	apiKey := cfg.APIKey(providerName)
	if apiKey == "" {
		t.Skipf("missing api key for %s", providerName)
	}

	c := *cfg
	c.LLM = config.DefaultModels(providerName)
	c.Providers = map[string]config.ProviderConfig{providerName: {APIKey: apiKey}}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	backend, err := newBackend(ctx, &c)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	ts := httptest.NewServer(server.New(&c, backend).Handler())
	t.Cleanup(ts.Close)
	return api.NewClient(ts.URL, nil)
}

func TestLiveSummaryAndChat(t *testing.T) {
	cfg := loadTestConfig(t)

	for _, providerName := range testProviders {
		providerName := providerName
		t.Run(providerName, func(t *testing.T) {
			t.Parallel()
			client := liveClient(t, cfg, providerName)

			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			st := store.New(store.NewMemoryKV(), store.DefaultMaxRecords)
			record, err := summary.New(client, st).Generate(ctx, testutil.LongTranscript, 95, meeting.Standup, nil)
			if err != nil {
				t.Fatalf("summary failed: %v", err)
			}
			if strings.TrimSpace(record.Overview) == "" {
				t.Error("summary has no overview")
			}
			t.Logf("overview: %q, %d action items", truncateTestString(record.Overview, 100), len(record.ActionItems))

			answer, err := chat.NewConversation(client).Ask(ctx, "Who updates the changelog?", record.Transcript, record.ID)
			if err != nil {
				t.Fatalf("chat failed: %v", err)
			}
			if !strings.Contains(strings.ToLower(answer), "bob") {
				t.Errorf("answer does not name Bob: %q", answer)
			}
		})
	}
}

func TestLiveImport(t *testing.T) {
	cfg := loadTestConfig(t)

	for _, providerName := range testProviders {
		providerName := providerName
		t.Run(providerName, func(t *testing.T) {
			t.Parallel()
			client := liveClient(t, cfg, providerName)

			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			recCfg := recording.DefaultConfig()
			session := transcriber.NewSession(client, transcriber.Config{SendTimeout: 30 * time.Second})
			st := store.New(store.NewMemoryKV(), store.DefaultMaxRecords)

			// a tone has no speech: frames must transcribe without errors and
			// the summary must be refused as too short
			res, err := pipeline.Import(ctx, session, summary.New(client, st), testTone(recCfg.SampleRate, 2*time.Second), recCfg, meeting.General, nil)
			if res == nil {
				t.Fatalf("import failed: %v", err)
			}
			if res.Failed > 0 {
				t.Errorf("%d frames failed: %v", res.Failed, session.LastError())
			}
			t.Logf("transcript: %q, err: %v", truncateTestString(res.Transcript, 100), err)
		})
	}
}

func TestLiveModels(t *testing.T) {
	cfg := loadTestConfig(t)

	for _, providerName := range testProviders {
		providerName := providerName
		t.Run(providerName, func(t *testing.T) {
			client := liveClient(t, cfg, providerName)

			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			resp, err := client.ListModels(ctx)
			if err != nil {
				t.Fatalf("list models failed: %v", err)
			}
			if resp.Count == 0 || len(resp.Models) != resp.Count {
				t.Errorf("models response = %d/%d", resp.Count, len(resp.Models))
			}
		})
	}
}

func TestLiveWAVFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	samples := testTone(16000, time.Second)
	if err := writeTestWAV(path, samples, 16000); err != nil {
		t.Fatal(err)
	}
	got, err := recording.ReadWAVFile(path, 16000)
	if err != nil || len(got) != len(samples) {
		t.Fatalf("ReadWAVFile() = %d samples, %v", len(got), err)
	}
}

func testTone(sampleRate int, d time.Duration) []int16 {
	n := int(d.Seconds() * float64(sampleRate))
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return samples
}

func writeTestWAV(path string, samples []int16, sampleRate int) error {
	return os.WriteFile(path, recording.WAV(recording.EncodeS16LE(samples), sampleRate, 1), 0o600)
}

func truncateTestString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
