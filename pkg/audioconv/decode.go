// Package audioconv decodes audio files into mono float32 PCM at a target rate.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

const DefaultRate = 16000

type Options struct {
	SampleRate int // target rate; 0 = DefaultRate
	MaxSamples int // 0 = no limit
}

func (o Options) rate() int {
	if o.SampleRate <= 0 {
		return DefaultRate
	}
	return o.SampleRate
}

type Format string

const (
	WAV     Format = "wav"
	MP3     Format = "mp3"
	Ogg     Format = "ogg"
	Unknown Format = ""
)

// Sniff guesses the container from the extension, then from magic bytes.
func Sniff(path string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return WAV
	case ".mp3":
		return MP3
	case ".ogg", ".oga", ".opus":
		return Ogg
	}

	switch {
	case bytes.HasPrefix(head, []byte("RIFF")):
		return WAV
	case bytes.HasPrefix(head, []byte("OggS")):
		return Ogg
	case bytes.HasPrefix(head, []byte("ID3")), len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return MP3
	}
	return Unknown
}

// DecodeFile reads wav, mp3, ogg/vorbis or ogg/opus.
func DecodeFile(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var (
		pcm  []float32
		rate int
	)

	switch Sniff(path, head) {
	case WAV:
		pcm, rate, err = decodeWAV(f)
	case MP3:
		pcm, rate, err = decodeMP3(f)
	case Ogg:
		pcm, rate, err = decodeVorbis(f)
		if err != nil {
			if _, serr := f.Seek(0, io.SeekStart); serr != nil {
				return nil, serr
			}
			var oerr error
			pcm, rate, oerr = decodeOpus(f)
			if oerr != nil {
				return nil, fmt.Errorf("ogg is neither vorbis (%v) nor opus: %w", err, oerr)
			}
			err = nil
		}
	default:
		return nil, fmt.Errorf("unsupported audio file %s", filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	out := Resample(pcm, rate, opt.rate())
	if opt.MaxSamples > 0 && len(out) > opt.MaxSamples {
		out = out[:opt.MaxSamples]
	}
	return out, nil
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	channels, rate := 1, int(dec.SampleRate)
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}

	return Downmix(intsToFloat(buf.Data, depth), channels), rate, nil
}

func decodeMP3(r io.Reader) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}

	samples := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, 0, err
	}

	// go-mp3 always emits interleaved stereo
	return Downmix(int16ToFloat(samples), 2), dec.SampleRate(), nil
}

func decodeVorbis(r io.Reader) ([]float32, int, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, 0, errors.New("invalid vorbis stream")
	}
	return Downmix(pcm, format.Channels), format.SampleRate, nil
}
