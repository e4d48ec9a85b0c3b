// Package stt turns a continuous stream of PCM frames into finalized
// utterance transcripts.
package stt

import (
	"context"
	"errors"
	"time"
)

var ErrNoAudio = errors.New("no audio samples provided")

type Options struct {
	Language      string // "auto", "en", ...
	TranslateToEn bool
	Threads       int // <=0 => NumCPU()
	InitialPrompt string
	BeamSize      int // 0 = greedy
	MaxTokens     uint
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Transcriber converts one finished utterance (mono, float32 in [-1, 1]).
type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm []float32, opt Options) (Result, error)
}

// Endpoint decides where an utterance ends.
type Endpoint struct {
	SampleRate       int
	SilenceThreshold float64       // RMS in [0, 1]
	SilenceHold      time.Duration // trailing silence that ends speech
	MaxUtterance     time.Duration // forced boundary
}

