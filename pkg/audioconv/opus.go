//go:build opus

package audioconv

import (
	"io"

	popus "github.com/pekim/opus"
)

func decodeOpus(r io.ReadSeeker) ([]float32, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}

	const opusRate = 48000

	var (
		out []float32
		buf = make([]int16, opusRate/2*channels)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out = append(out, int16ToFloat(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	return Downmix(out, channels), opusRate, nil
}
