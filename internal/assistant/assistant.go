package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"sync"
	"time"

	"opencode/internal/audio"
	"opencode/internal/intent"
)

const (
	Greeting      = "OpenCode is online and ready."
	Acknowledge   = "Yes?"
	NoCommand     = "I didn't catch that."
	CriticalError = "Critical error occurred. Shutting down."

	farewellTimeout = 15 * time.Second
)

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, transcript string) intent.Result
}

type Ducker interface {
	Duck(ctx context.Context) error
	Unduck(ctx context.Context) error
}

type Notifier interface {
	Play(ctx context.Context) error
}

type Publisher interface {
	Publish(kind, content string)
}

type Assistant struct {
	listener *Listener
	queue    *audio.Queue
	speaker  Speaker
	dispatch Dispatcher

	// optional
	Chime  Notifier
	Ducker Ducker
	Events Publisher
	Out    io.Writer

	sayMu    sync.Mutex
	farewell sync.Once

	mu      sync.Mutex
	cancel  context.CancelFunc
	started time.Time
}

func New(l *Listener, speaker Speaker, d Dispatcher) *Assistant {
	return &Assistant{
		listener: l,
		queue:    l.queue,
		speaker:  speaker,
		dispatch: d,
		Out:      os.Stdout,
	}
}

// Run greets, then loops until the context is cancelled, a shutdown command
// arrives or the audio source ends. Only an unrecoverable error is returned.
func (a *Assistant) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.cancel = cancel
	a.started = time.Now()
	a.mu.Unlock()

	log.Info("Assistant started")
	a.Say(ctx, Greeting)

	for {
		armed, err := a.listener.WaitForWake(ctx)
		if errors.Is(err, audio.ErrQueueClosed) {
			log.Info("Audio input ended")
			break
		}
		if err != nil {
			log.Error("Main loop failed", "err", err)
			a.Say(context.WithoutCancel(ctx), CriticalError)
			return fmt.Errorf("wait for wake: %w", err)
		}
		if !armed {
			break
		}

		a.handleWake(ctx)
	}

	a.Stop()

	return nil
}

func (a *Assistant) handleWake(ctx context.Context) {
	a.publish("wake", "")

	if a.Ducker != nil {
		if err := a.Ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck other audio", "err", err)
		}
	}

	if a.Chime != nil {
		if err := a.Chime.Play(ctx); err != nil {
			log.Warn("Chime failed", "err", err)
		}
	}

	a.Say(ctx, Acknowledge)

	if n := a.queue.Drain(); n > 0 {
		log.Debug("Discarded frames captured during acknowledgement", "frames", n)
	}

	text, ok := a.listener.ListenForCommand(ctx)

	if a.Ducker != nil {
		if err := a.Ducker.Unduck(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to restore other audio", "err", err)
		}
	}

	if ctx.Err() != nil {
		return
	}
	if !ok {
		a.Say(ctx, NoCommand)
		return
	}

	a.publish("command", text)

	res := a.dispatch.Dispatch(ctx, text)
	if res.Err != nil {
		log.Error("Action failed", "intent", res.Name, "err", res.Err)
	} else {
		log.Info("Action completed", "intent", res.Name, "outcome", res.Outcome)
	}

	if res.Outcome == intent.Exit {
		a.Stop()
		return
	}

	a.Say(ctx, res.Text)
	a.publish("reply", res.Text)
}

// Say logs, echoes and speaks text. Speech failures are logged only.
func (a *Assistant) Say(ctx context.Context, text string) {
	a.sayMu.Lock()
	defer a.sayMu.Unlock()

	log.Info("[OpenCode]: " + text)
	if a.Out != nil {
		fmt.Fprintf(a.Out, "[OpenCode]: %s\n", text)
	}

	if err := a.speaker.Speak(ctx, text); err != nil {
		log.Error("Speech failed", "err", err)
	}
}

// Stop speaks the farewell once and cancels the loop.
func (a *Assistant) Stop() {
	a.farewell.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), farewellTimeout)
		defer cancel()

		log.Info("Shutting down")
		a.publish("shutdown", "")
		a.Say(ctx, intent.Farewell)
	})

	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (a *Assistant) publish(kind, content string) {
	if a.Events != nil {
		a.Events.Publish(kind, content)
	}
}

type Status struct {
	State   State
	Uptime  time.Duration
	Dropped uint64
	Queued  int
}

func (a *Assistant) Status() Status {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()

	var up time.Duration
	if !started.IsZero() {
		up = time.Since(started).Truncate(time.Second)
	}

	return Status{
		State:   a.listener.State(),
		Uptime:  up,
		Dropped: a.queue.Dropped(),
		Queued:  a.queue.Len(),
	}
}

func (s Status) String() string {
	return fmt.Sprintf("state=%s uptime=%s queued=%d dropped=%d", s.State, s.Uptime, s.Queued, s.Dropped)
}
