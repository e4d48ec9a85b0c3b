package audio

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pactlOutput = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: mono: 32768 /  50% / -18.06 dB
	Properties:
		application.name = "piper"
Sink Input #bogus
	Volume: mono: 100%
`

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	out   map[string]string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.out[line]), nil
}

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(pactlOutput)

	require.Len(t, got, 2)
	assert.Equal(t, sinkInput{ID: 41, Volume: 100, AppName: "Firefox"}, got[0])
	assert.Equal(t, sinkInput{ID: 42, Volume: 50, AppName: "piper"}, got[1])
	assert.Nil(t, parseSinkInputs(""))
}

func TestDuckerSkipsSelfAndRestores(t *testing.T) {
	run := &fakeRunner{out: map[string]string{"pactl list sink-inputs": pactlOutput}}
	d := NewDucker(run, []string{"piper"}, 10, 0.3, 0)

	require.NoError(t, d.Duck(context.Background()))
	assert.Contains(t, run.calls, "pactl set-sink-input-volume 41 30%")
	for _, c := range run.calls {
		assert.NotContains(t, c, "set-sink-input-volume 42")
	}

	// second duck is a no-op
	n := len(run.calls)
	require.NoError(t, d.Duck(context.Background()))
	assert.Len(t, run.calls, n)

	require.NoError(t, d.Unduck(context.Background()))
	assert.Equal(t, "pactl set-sink-input-volume 41 100%", run.calls[len(run.calls)-1])
}

func TestDuckerRespectsFloor(t *testing.T) {
	run := &fakeRunner{out: map[string]string{"pactl list sink-inputs": pactlOutput}}
	d := NewDucker(run, nil, 40, 0.1, 0)

	require.NoError(t, d.Duck(context.Background()))
	assert.Contains(t, run.calls, "pactl set-sink-input-volume 41 40%")
	assert.Contains(t, run.calls, "pactl set-sink-input-volume 42 40%")
}
