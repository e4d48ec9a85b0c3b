package audio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPop(t *testing.T) {
	q := NewQueue(4)

	q.Push(Frame{1})
	q.Push(Frame{2})

	f, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, Frame{1}, f)

	f, err = q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, Frame{2}, f)
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)

	q.Push(Frame{1})
	q.Push(Frame{2})
	q.Push(Frame{3})

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(1), q.Dropped())

	f, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, Frame{2}, f)
}

func TestQueuePopTimeout(t *testing.T) {
	q := NewQueue(1)

	_, err := q.Pop(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrPollTimeout)
}

func TestQueuePopCancelled(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close()

	q.Push(Frame{1})
	assert.Equal(t, 0, q.Len())

	_, err := q.Pop(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueCloseKeepsBufferedFrames(t *testing.T) {
	q := NewQueue(4)
	q.Push(Frame{7})
	q.Close()

	f, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, Frame{7}, f)

	_, err = q.Pop(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueDrain(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		q.Push(Frame{int16(i)})
	}

	assert.Equal(t, 5, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestQueueConcurrentProducer(t *testing.T) {
	q := NewQueue(16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			q.Push(Frame{int16(i)})
		}
	}()

	got := 0
	for {
		_, err := q.Pop(context.Background(), 50*time.Millisecond)
		if err != nil {
			break
		}
		got++
	}
	wg.Wait()
	got += q.Drain()

	assert.Equal(t, uint64(1000), uint64(got)+q.Dropped())
}
