package notify

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/leonardotrapani/listenin/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotificationsConfig
		want Notifier
	}{
		{"desktop", config.NotificationsConfig{Enabled: true, Type: "desktop"}, Desktop{}},
		{"log", config.NotificationsConfig{Enabled: true, Type: "log"}, Log{}},
		{"none", config.NotificationsConfig{Enabled: true, Type: "none"}, Nop{}},
		{"disabled", config.NotificationsConfig{Enabled: false, Type: "desktop"}, Nop{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.cfg); got != tt.want {
				t.Errorf("New() = %T, want %T", got, tt.want)
			}
		})
	}
}

func TestLogNotifierOutput(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logNotifier := Log{}

	testCases := []struct {
		name     string
		method   func()
		expected []string
	}{
		{"started", logNotifier.RecordingStarted, []string{"Listenin", "Recording Started"}},
		{"paused", logNotifier.RecordingPaused, []string{"Listenin", "Recording Paused"}},
		{"resumed", logNotifier.RecordingResumed, []string{"Recording Resumed"}},
		{"ended", logNotifier.RecordingEnded, []string{"Recording Ended"}},
		{"summarizing", logNotifier.Summarizing, []string{"Generating Summary"}},
		{"ready", func() { logNotifier.SummaryReady("Budget review") }, []string{"Summary Ready", "Budget review"}},
		{"notice", func() { logNotifier.Notice("transcript too short") }, []string{"Notice", "transcript too short"}},
		{"error", func() { logNotifier.Error("quota exceeded") }, []string{"Listenin Error", "quota exceeded"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.method()
			output := buf.String()
			for _, expected := range tc.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("log output should contain %q, got: %s", expected, output)
				}
			}
		})
	}
}

func TestNopNotifier(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	var n Notifier = Nop{}
	n.RecordingStarted()
	n.RecordingPaused()
	n.RecordingResumed()
	n.RecordingEnded()
	n.Summarizing()
	n.SummaryReady("x")
	n.Notice("x")
	n.Error("x")

	if buf.Len() != 0 {
		t.Errorf("Nop should not log, got: %s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("é", 130)
	got := truncate(long, 120)
	if len([]rune(got)) != 120 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate(long) has %d runes", len([]rune(got)))
	}
}
