package notify

import (
	"log"
	"os/exec"

	"github.com/leonardotrapani/listenin/internal/config"
)

const appName = "Listenin"

type Notifier interface {
	RecordingStarted()
	RecordingPaused()
	RecordingResumed()
	RecordingEnded()
	Summarizing()
	SummaryReady(overview string)
	Notice(msg string)
	Error(msg string)
}

// New picks the notifier for cfg. Disabled notifications get Nop.
func New(cfg config.NotificationsConfig) Notifier {
	if !cfg.Enabled {
		return Nop{}
	}
	switch cfg.Type {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	}
	return Nop{}
}

type message struct {
	title string
	body  string
}

var (
	msgStarted     = message{"Recording Started", "Listening to your meeting"}
	msgPaused      = message{"Recording Paused", "Audio is not being transcribed"}
	msgResumed     = message{"Recording Resumed", "Listening again"}
	msgEnded       = message{"Recording Ended", "Recording stopped"}
	msgSummarizing = message{"Generating Summary", "Analyzing your meeting..."}
)

// Desktop sends notifications through notify-send.
type Desktop struct{}

func (d Desktop) send(m message, critical bool) {
	args := []string{"-a", appName}
	if critical {
		args = append(args, "-u", "critical")
	}
	args = append(args, appName+": "+m.title, m.body)
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

func (d Desktop) RecordingStarted() { d.send(msgStarted, false) }
func (d Desktop) RecordingPaused()  { d.send(msgPaused, false) }
func (d Desktop) RecordingResumed() { d.send(msgResumed, false) }
func (d Desktop) RecordingEnded()   { d.send(msgEnded, false) }
func (d Desktop) Summarizing()      { d.send(msgSummarizing, false) }

func (d Desktop) SummaryReady(overview string) {
	d.send(message{"Summary Ready", truncate(overview, 120)}, false)
}

func (d Desktop) Notice(msg string) { d.send(message{"Notice", msg}, false) }
func (d Desktop) Error(msg string)  { d.send(message{"Error", msg}, true) }

// Log writes notifications to the standard logger.
type Log struct{}

func (Log) send(m message) {
	log.Printf("%s: %s - %s", appName, m.title, m.body)
}

func (l Log) RecordingStarted()            { l.send(msgStarted) }
func (l Log) RecordingPaused()             { l.send(msgPaused) }
func (l Log) RecordingResumed()            { l.send(msgResumed) }
func (l Log) RecordingEnded()              { l.send(msgEnded) }
func (l Log) Summarizing()                 { l.send(msgSummarizing) }
func (l Log) SummaryReady(overview string) { l.send(message{"Summary Ready", truncate(overview, 120)}) }
func (l Log) Notice(msg string)            { l.send(message{"Notice", msg}) }
func (Log) Error(msg string)               { log.Printf("%s Error: %s", appName, msg) }

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingStarted()   {}
func (Nop) RecordingPaused()    {}
func (Nop) RecordingResumed()   {}
func (Nop) RecordingEnded()     {}
func (Nop) Summarizing()        {}
func (Nop) SummaryReady(string) {}
func (Nop) Notice(string)       {}
func (Nop) Error(msg string)    {}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
