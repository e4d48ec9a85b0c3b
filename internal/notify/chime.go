// Package notify gives audible feedback when the assistant arms.
package notify

import (
	"context"
	"os"
	"time"
)

type player interface {
	Play(ctx context.Context, path string) error
}

// Chime plays a short sound file. A missing file disables it.
type Chime struct {
	path    string
	player  player
	timeout time.Duration
}

func NewChime(path string, p player) *Chime {
	return &Chime{path: path, player: p, timeout: 3 * time.Second}
}

func (c *Chime) Enabled() bool {
	if c == nil || c.path == "" {
		return false
	}
	_, err := os.Stat(c.path)
	return err == nil
}

func (c *Chime) Play(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.player.Play(ctx, c.path)
}
