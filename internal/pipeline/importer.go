package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/leonardotrapani/listenin/internal/apperr"
	"github.com/leonardotrapani/listenin/internal/meeting"
	"github.com/leonardotrapani/listenin/internal/recording"
)

// ImportResult is the outcome of transcribing a prerecorded meeting.
type ImportResult struct {
	Transcript string
	Duration   time.Duration
	Failed     int // frames whose transcription failed
	Summary    *meeting.Summary
}

// Import transcribes prerecorded mono samples frame by frame, in order, and
// summarizes the transcript. Frames that fail to transcribe are skipped; any
// other failure (quota, credentials, rate limits) ends the import without a
// summary. onFrame, if set, is called after each frame.
func Import(ctx context.Context, session Transcriber, summarizer Summarizer, samples []int16, cfg recording.Config, framework meeting.Framework, onFrame func(done, total int)) (*ImportResult, error) {
	if cfg.SampleRate <= 0 || cfg.FrameSamples <= 0 {
		return nil, fmt.Errorf("invalid recording config: rate=%d frame=%d", cfg.SampleRate, cfg.FrameSamples)
	}
	if framework == "" {
		framework = meeting.General
	}

	session.ClearTranscript()
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	defer session.Disconnect()

	res := &ImportResult{
		Duration: time.Duration(len(samples)) * time.Second / time.Duration(cfg.SampleRate),
	}

	frames := recording.Frames(samples, cfg.FrameSamples)
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := session.SendFrame(ctx, frame); err != nil {
			if !apperr.IsKind(err, apperr.TranscriptionFailed) {
				log.Printf("Import: stopping at frame %d/%d: %v", i+1, len(frames), err)
				res.Transcript = session.FullTranscript()
				return res, err
			}
			res.Failed++
			log.Printf("Import: frame %d/%d failed: %v", i+1, len(frames), err)
		}
		if onFrame != nil {
			onFrame(i+1, len(frames))
		}
	}

	res.Transcript = session.FullTranscript()
	record, err := summarizer.Generate(ctx, res.Transcript, int(res.Duration.Seconds()), framework, nil)
	if err != nil {
		return res, err
	}
	res.Summary = record
	return res, nil
}
