// Package playback plays wav and mp3 files on the default output through beep.
package playback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player owns the process-wide speaker. Everything is resampled to one
// output rate so the speaker is initialised exactly once.
type Player struct {
	rate    beep.SampleRate
	once    sync.Once
	initErr error
	mu      sync.Mutex
}

func New(sampleRate int) *Player {
	return &Player{rate: beep.SampleRate(sampleRate)}
}

func (p *Player) init() error {
	p.once.Do(func() {
		p.initErr = speaker.Init(p.rate, p.rate.N(time.Second/10))
	})
	return p.initErr
}

// Play blocks until the file has been played or ctx ends.
func (p *Player) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	default:
		stream, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	defer stream.Close()

	var s beep.Streamer = stream
	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, stream)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
