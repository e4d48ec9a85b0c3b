package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

type Player interface {
	Play(ctx context.Context, path string) error
}

// Piper synthesizes to a wav file with the piper CLI and then plays it.
type Piper struct {
	bin    string
	model  string
	out    string
	player Player

	SynthTimeout time.Duration
	PlayTimeout  time.Duration
}

func NewPiper(bin, model, out string, player Player) *Piper {
	if bin == "" {
		bin = "piper"
	}
	if out == "" {
		out = "/tmp/speech.wav"
	}
	return &Piper{
		bin:          bin,
		model:        model,
		out:          out,
		player:       player,
		SynthTimeout: DefaultTimeout,
		PlayTimeout:  DefaultTimeout,
	}
}

func (p *Piper) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if err := p.synthesize(ctx, text); err != nil {
		return err
	}

	if p.player == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.PlayTimeout)
	defer cancel()

	if err := p.player.Play(ctx, p.out); err != nil {
		return fmt.Errorf("play %s: %w", p.out, err)
	}

	return nil
}

func (p *Piper) synthesize(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, p.SynthTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin, "--model", p.model, "--output_file", p.out)
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("piper: %w", ctx.Err())
		}
		return fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return nil
}
