// Package assistant runs the wake → command → dispatch → speech loop.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync/atomic"
	"time"

	"opencode/internal/audio"
)

type State int32

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Recognizer consumes frames and reports finalized utterances.
type Recognizer interface {
	AcceptWaveform(ctx context.Context, frame []int16) (bool, error)
	Result() string
	Reset()
}

type ListenerConfig struct {
	WakePhrases   []string
	CommandWindow time.Duration
	PollTimeout   time.Duration
}

// Listener owns the consumer side of the frame queue.
type Listener struct {
	queue   *audio.Queue
	rec     Recognizer
	wake    []string
	window  time.Duration
	poll    time.Duration
	trigger chan struct{}
	state   atomic.Int32
}

func NewListener(q *audio.Queue, rec Recognizer, cfg ListenerConfig) *Listener {
	wake := make([]string, 0, len(cfg.WakePhrases))
	for _, p := range cfg.WakePhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			wake = append(wake, p)
		}
	}

	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.CommandWindow <= 0 {
		cfg.CommandWindow = 10 * time.Second
	}

	return &Listener{
		queue:   q,
		rec:     rec,
		wake:    wake,
		window:  cfg.CommandWindow,
		poll:    cfg.PollTimeout,
		trigger: make(chan struct{}, 1),
	}
}

func (l *Listener) State() State { return State(l.state.Load()) }

func (l *Listener) setState(s State) { l.state.Store(int32(s)) }

// Trigger arms the listener without a wake phrase. It reports false when a
// trigger is already pending.
func (l *Listener) Trigger() bool {
	select {
	case l.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// IsWake reports whether text contains a wake phrase.
func (l *Listener) IsWake(text string) bool {
	text = strings.ToLower(text)
	for _, p := range l.wake {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// WaitForWake blocks until a wake phrase or trigger arrives (true), the
// context is cancelled (false, nil) or the audio source ends.
func (l *Listener) WaitForWake(ctx context.Context) (bool, error) {
	l.setState(Idle)
	l.rec.Reset()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case <-l.trigger:
			log.Info("Wake triggered by control command")
			l.setState(Armed)
			return true, nil
		default:
		}

		frame, err := l.queue.Pop(ctx, l.poll)
		switch {
		case errors.Is(err, audio.ErrPollTimeout):
			continue
		case ctx.Err() != nil:
			return false, nil
		case err != nil:
			return false, err
		}

		done, err := l.rec.AcceptWaveform(ctx, frame)
		if err != nil {
			log.Warn("Recognizer failed while scanning for wake phrase", "err", err)
			continue
		}
		if !done {
			continue
		}

		text := l.rec.Result()
		log.Debug("Heard", "text", text)

		if l.IsWake(text) {
			log.Info("Wake word detected", "text", text)
			l.setState(Armed)
			return true, nil
		}
	}
}

// ListenForCommand returns the first non-empty utterance heard within the
// command window. The listener is Idle again when it returns.
func (l *Listener) ListenForCommand(ctx context.Context) (string, bool) {
	defer l.setState(Idle)

	l.setState(Armed)
	l.rec.Reset()

	deadline := time.Now().Add(l.window)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Info("Command window elapsed")
			return "", false
		}

		frame, err := l.queue.Pop(ctx, min(l.poll, remaining))
		if errors.Is(err, audio.ErrPollTimeout) {
			continue
		}
		if err != nil {
			return "", false
		}

		done, err := l.rec.AcceptWaveform(ctx, frame)
		if err != nil {
			log.Error("Recognizer failed while listening for command", "err", err)
			return "", false
		}

		if done {
			if text := strings.TrimSpace(l.rec.Result()); text != "" {
				log.Info("Command heard", "text", text)
				return text, true
			}
		}
	}
}
