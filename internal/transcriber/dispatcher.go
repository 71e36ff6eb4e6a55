package transcriber

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/listenin/internal/recording"
)

type FrameSender interface {
	SendFrame(ctx context.Context, frame recording.AudioFrame) error
}

// Dispatcher feeds frames to a FrameSender one at a time. While a send is in
// flight at most one frame waits; a newer frame replaces it.
type Dispatcher struct {
	sender  FrameSender
	onError func(error)
	dropped atomic.Int64
}

// NewDispatcher creates a dispatcher. onError, if set, receives every failed send.
func NewDispatcher(sender FrameSender, onError func(error)) *Dispatcher {
	return &Dispatcher{sender: sender, onError: onError}
}

// Dropped is the number of queued frames replaced by newer ones.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Run blocks until frames is closed and the last send finished, or ctx is
// cancelled and the in-flight send returned.
func (d *Dispatcher) Run(ctx context.Context, frames <-chan recording.AudioFrame) {
	done := make(chan error, 1)
	inflight := false

	var pending recording.AudioFrame
	hasPending := false

	var droppedSinceLog int
	lastDropLog := time.Now()

	send := func(frame recording.AudioFrame) {
		inflight = true
		go func() { done <- d.sender.SendFrame(ctx, frame) }()
	}

	for {
		if !inflight && hasPending {
			send(pending)
			hasPending = false
		}
		if frames == nil && !inflight {
			return
		}

		select {
		case <-ctx.Done():
			if inflight {
				<-done
			}
			return

		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			if !inflight {
				send(frame)
				continue
			}
			if hasPending {
				d.dropped.Add(1)
				droppedSinceLog++
				if time.Since(lastDropLog) > time.Second {
					log.Printf("transcriber: dropped %d queued frames while a send was in flight", droppedSinceLog)
					lastDropLog = time.Now()
					droppedSinceLog = 0
				}
			}
			pending = frame
			hasPending = true

		case err := <-done:
			inflight = false
			if err != nil && d.onError != nil {
				d.onError(err)
			}
		}
	}
}
