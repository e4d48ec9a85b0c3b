//go:build !espeak

package tts

import (
	"context"
	"errors"
)

type Espeak struct{}

func NewEspeak(string) Speaker { return Espeak{} }

func (Espeak) Speak(context.Context, string) error {
	return errors.New("espeak support not enabled (build with -tags espeak)")
}
