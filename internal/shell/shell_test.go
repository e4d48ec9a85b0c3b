package shell

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecStdout(t *testing.T) {
	out, err := Exec{}.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestExecStderrInError(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "sh", "-c", "echo 'permission denied' >&2; exit 1")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestExecNotFound(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "definitely-not-a-binary-opencode")
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	_, err := RunTimeout(context.Background(), Exec{}, 50*time.Millisecond, "sleep", "5")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestDetachedStart(t *testing.T) {
	assert.NoError(t, Detached{}.Start("true"))
	assert.Error(t, Detached{}.Start("definitely-not-a-binary-opencode"))
}
