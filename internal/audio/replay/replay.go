// Package replay plays an audio file into the frame queue in place of the microphone.
package replay

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"opencode/internal/audio"
	"opencode/pkg/audioconv"
)

type Source struct {
	frames   []audio.Frame
	queue    *audio.Queue
	interval time.Duration
}

// Open decodes path and slices it into frames. Trailing silence is appended
// so that the recognizer sees an utterance boundary after the last word.
func Open(path string, q *audio.Queue, sampleRate, frameSize int, tail time.Duration) (*Source, error) {
	pcm, err := audioconv.DecodeFile(path, audioconv.Options{SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("open replay input: %w", err)
	}

	samples := audio.FromFloat32(pcm)
	if tail > 0 {
		samples = append(samples, make(audio.Frame, int(tail.Seconds()*float64(sampleRate)))...)
	}

	return &Source{
		frames:   audio.Split(samples, frameSize),
		queue:    q,
		interval: audio.Frame(make([]int16, frameSize)).Duration(sampleRate),
	}, nil
}

// Pace overrides the delay between frames; zero pushes as fast as possible.
func (s *Source) Pace(d time.Duration) { s.interval = d }

func (s *Source) Len() int { return len(s.frames) }

// Run pushes every frame, one per interval, until done or ctx ends.
func (s *Source) Run(ctx context.Context) error {
	log.Info("Replaying input", "frames", len(s.frames))

	var tick <-chan time.Time
	if s.interval > 0 {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		tick = t.C
	}

	for _, f := range s.frames {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		s.queue.Push(f)
	}

	log.Info("Replay finished")

	return nil
}
