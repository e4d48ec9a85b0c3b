// Package whisper implements stt.Transcriber with whisper.cpp.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"opencode/pkg/stt"
)

type Transcriber struct {
	mu    sync.Mutex
	model whisper.Model
}

// Load fails when the model file is missing or unreadable.
func Load(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model not found at %s: %w", modelPath, err)
	}

	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	return &Transcriber{model: m}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

func (t *Transcriber) TranscribePCM(ctx context.Context, pcm []float32, opt stt.Options) (stt.Result, error) {
	if t.model == nil {
		return stt.Result{}, errors.New("nil model")
	}
	if len(pcm) == 0 {
		return stt.Result{}, stt.ErrNoAudio
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("new context: %w", err)
	}

	lang := opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return stt.Result{}, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.MaxTokens > 0 {
		wctx.SetMaxTokensPerSegment(opt.MaxTokens)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("process: %w", err)
	}

	var (
		segs  []stt.Segment
		texts []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return stt.Result{}, err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("next segment: %w", err)
		}

		segs = append(segs, stt.Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
		texts = append(texts, strings.TrimSpace(s.Text))
	}

	detected := wctx.DetectedLanguage()
	if detected == "" {
		detected = wctx.Language()
	}

	return stt.Result{
		Text:     strings.Join(texts, " "),
		Segments: segs,
		Language: detected,
	}, nil
}
