package audioconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, Downmix([]float32{1, 0, 0.5, -0.5}, 2))

	mono := []float32{1, 2}
	assert.Equal(t, mono, Downmix(mono, 1))
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 0, -1}

	assert.Equal(t, in, Resample(in, 16000, 16000))
	assert.Len(t, Resample(in, 48000, 16000), 2)

	up := Resample([]float32{0, 1}, 8000, 16000)
	assert.Equal(t, []float32{0, 0.5, 1, 1}, up)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		path string
		head []byte
		want Format
	}{
		{"a.WAV", nil, WAV},
		{"a.mp3", nil, MP3},
		{"a.opus", nil, Ogg},
		{"blob", []byte("RIFF"), WAV},
		{"blob", []byte("OggS"), Ogg},
		{"blob", []byte("ID3\x03"), MP3},
		{"blob", []byte{0xFF, 0xFB, 0, 0}, MP3},
		{"blob", []byte("????"), Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Sniff(tt.path, tt.head), tt.path)
	}
}

func TestIntsToFloat(t *testing.T) {
	got := intsToFloat([]int{0, 16384, -32768, 40000}, 16)
	assert.Equal(t, []float32{0, 0.5, -1, 1}, got)
}
