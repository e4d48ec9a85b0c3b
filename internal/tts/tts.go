// Package tts turns response text into audible speech.
package tts

import (
	"context"
	"fmt"
	"time"
)

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Console is a silent speaker for hosts without audio output.
type Console struct{}

func (Console) Speak(context.Context, string) error { return nil }

// Options selects and configures a speaker.
type Options struct {
	Engine   string // piper, espeak, console
	PiperBin string
	Model    string
	OutFile  string
	Language string
	Timeout  time.Duration // per synthesis and per playback
	Player   Player
}

func New(opt Options) (Speaker, error) {
	switch opt.Engine {
	case "", "piper":
		p := NewPiper(opt.PiperBin, opt.Model, opt.OutFile, opt.Player)
		if opt.Timeout > 0 {
			p.SynthTimeout, p.PlayTimeout = opt.Timeout, opt.Timeout
		}
		return p, nil
	case "espeak":
		return NewEspeak(opt.Language), nil
	case "console":
		return Console{}, nil
	}
	return nil, fmt.Errorf("unknown tts engine %q", opt.Engine)
}
