package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, h Handler) string {
	t.Helper()

	// unix socket paths are limited to ~104 bytes, keep it short
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, "c.sock")

	srv, err := Listen(path, h)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})

	return path
}

func TestSendRoundTrip(t *testing.T) {
	var got Request
	path := startServer(t, func(_ context.Context, req Request) Reply {
		got = req
		return Reply{OK: true, Message: "spoken"}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := Send(ctx, path, Request{Cmd: CmdSay, Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, Reply{OK: true, Message: "spoken"}, reply)
	assert.Equal(t, Request{Cmd: CmdSay, Text: "hello"}, got)
}

func TestServeHandlesSequentialClients(t *testing.T) {
	calls := make(chan string, 3)
	path := startServer(t, func(_ context.Context, req Request) Reply {
		calls <- req.Cmd
		return Reply{OK: true}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, cmd := range []string{CmdTrigger, CmdStatus, CmdShutdown} {
		reply, err := Send(ctx, path, Request{Cmd: cmd})
		require.NoError(t, err)
		assert.True(t, reply.OK)
		assert.Equal(t, cmd, <-calls)
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")

	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := Listen(path, nil)
	require.NoError(t, err)
	assert.NoError(t, srv.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSendNoServer(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "none.sock"), Request{Cmd: CmdStatus})
	assert.Error(t, err)
}
