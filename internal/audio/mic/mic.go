// Package mic feeds microphone frames from portaudio into an audio.Queue.
package mic

import (
	"fmt"
	log "log/slog"

	"github.com/gordonklaus/portaudio"

	"opencode/internal/audio"
)

type Capture struct {
	stream     *portaudio.Stream
	queue      *audio.Queue
	sampleRate int
	frameSize  int
}

func NewCapture(q *audio.Queue, sampleRate, frameSize int) *Capture {
	return &Capture{
		queue:      q,
		sampleRate: sampleRate,
		frameSize:  frameSize,
	}
}

// Start opens the default input device. Frames are pushed from the
// portaudio thread; the callback never blocks.
func (c *Capture) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("init portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), c.frameSize, c.callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	log.Debug("Capture started", "rate", c.sampleRate, "frame", c.frameSize)

	return nil
}

func (c *Capture) callback(in []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags != 0 {
		log.Warn("Audio status", "flags", flagNames(flags))
	}

	f := make(audio.Frame, len(in))
	copy(f, in)
	c.queue.Push(f)
}

func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}

	if err := c.stream.Stop(); err != nil {
		log.Warn("Failed to stop input stream", "err", err)
	}
	if err := c.stream.Close(); err != nil {
		log.Warn("Failed to close input stream", "err", err)
	}
	c.stream = nil

	return portaudio.Terminate()
}

func flagNames(flags portaudio.StreamCallbackFlags) []string {
	var names []string
	if flags&portaudio.InputUnderflow != 0 {
		names = append(names, "input underflow")
	}
	if flags&portaudio.InputOverflow != 0 {
		names = append(names, "input overflow")
	}
	if flags&portaudio.OutputUnderflow != 0 {
		names = append(names, "output underflow")
	}
	if flags&portaudio.OutputOverflow != 0 {
		names = append(names, "output overflow")
	}
	if flags&portaudio.PrimingOutput != 0 {
		names = append(names, "priming output")
	}
	return names
}
