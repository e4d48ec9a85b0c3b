package audio

import (
	"context"
	"errors"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPollTimeout = errors.New("no frame within poll timeout")
	ErrQueueClosed = errors.New("frame queue closed")
)

// Queue is the hand-off between the capture callback and the listener.
// Push never blocks: when the buffer is full the oldest frame is dropped.
type Queue struct {
	frames  chan Frame
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}

	return &Queue{
		frames: make(chan Frame, size),
		done:   make(chan struct{}),
	}
}

// Push enqueues a frame, evicting the oldest buffered one if needed.
// Safe to call from the capture callback.
func (q *Queue) Push(f Frame) {
	select {
	case <-q.done:
		return
	default:
	}

	for {
		select {
		case q.frames <- f:
			return
		default:
		}

		select {
		case <-q.frames:
			n := q.dropped.Add(1)
			if n == 1 || n%100 == 0 {
				log.Warn("Frame queue full, dropping oldest", "dropped", n)
			}
		default:
		}
	}
}

// Pop waits up to timeout for the next frame. Frames still buffered are
// returned before ErrQueueClosed.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Frame, error) {
	// buffered frames win over close so a finished source is fully consumed
	select {
	case f := <-q.frames:
		return f, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-q.frames:
		return f, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrPollTimeout
	}
}

// Drain discards everything currently buffered and returns the count.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.frames:
			n++
		default:
			return n
		}
	}
}

func (q *Queue) Len() int { return len(q.frames) }

func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}
