//go:build !opus

package audioconv

import (
	"errors"
	"io"
)

func decodeOpus(io.ReadSeeker) ([]float32, int, error) {
	return nil, 0, errors.New("opus support not enabled (build with -tags opus)")
}
