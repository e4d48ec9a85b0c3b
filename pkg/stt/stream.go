package stt

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// whisper marks non-speech as [BLANK_AUDIO], (music), *coughs* and similar
var annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

// Stream accumulates frames, detects utterance boundaries by energy and
// transcribes each finished utterance.
type Stream struct {
	tr  Transcriber
	opt Options
	ep  Endpoint

	buf      []float32
	speaking bool
	silence  time.Duration
	text     string
}

func NewStream(tr Transcriber, ep Endpoint, opt Options) *Stream {
	if ep.SampleRate <= 0 {
		ep.SampleRate = 16000
	}
	return &Stream{tr: tr, ep: ep, opt: opt}
}

// AcceptWaveform feeds one frame. It reports true when the frame closed an
// utterance; the text is then available from Result.
func (s *Stream) AcceptWaveform(ctx context.Context, frame []int16) (bool, error) {
	if len(frame) == 0 {
		return false, nil
	}

	dur := time.Duration(len(frame)) * time.Second / time.Duration(s.ep.SampleRate)
	pcm, rms := toFloat(frame)

	if rms > s.ep.SilenceThreshold {
		s.speaking = true
		s.silence = 0
		s.buf = append(s.buf, pcm...)
	} else if s.speaking {
		s.silence += dur
		s.buf = append(s.buf, pcm...)
	}

	if !s.speaking {
		return false, nil
	}

	length := time.Duration(len(s.buf)) * time.Second / time.Duration(s.ep.SampleRate)
	if s.silence < s.ep.SilenceHold && (s.ep.MaxUtterance <= 0 || length < s.ep.MaxUtterance) {
		return false, nil
	}

	return true, s.finalize(ctx)
}

func (s *Stream) finalize(ctx context.Context) error {
	pcm := s.buf
	s.buf = nil
	s.speaking = false
	s.silence = 0
	s.text = ""

	res, err := s.tr.TranscribePCM(ctx, pcm, s.opt)
	if err != nil {
		return fmt.Errorf("transcribe utterance: %w", err)
	}

	s.text = cleanTranscript(res.Text)

	return nil
}

// Result returns the text of the last finalized utterance.
func (s *Stream) Result() string { return s.text }

// Reset drops any partial utterance.
func (s *Stream) Reset() {
	s.buf = nil
	s.speaking = false
	s.silence = 0
	s.text = ""
}

func toFloat(frame []int16) ([]float32, float64) {
	out := make([]float32, len(frame))
	var sum float64
	for i, v := range frame {
		x := float64(v) / 32768.0
		out[i] = float32(x)
		sum += x * x
	}
	return out, math.Sqrt(sum / float64(len(frame)))
}

// cleanTranscript drops annotations and sentence punctuation so that
// "Hey, OpenCode!" reads like "Hey OpenCode".
func cleanTranscript(text string) string {
	text = annotationRe.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	out := words[:0]
	for _, w := range words {
		if w = strings.Trim(w, `.,!?;:"`); w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
