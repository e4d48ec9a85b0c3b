package sensors

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ipAddrOutput = `1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN group default qlen 1000
    link/loopback 00:00:00:00:00:00 brd 00:00:00:00:00:00
    inet 127.0.0.1/8 scope host lo
    inet6 ::1/128 scope host
2: eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc fq_codel state UP group default qlen 1000
    inet 192.168.1.20/24 brd 192.168.1.255 scope global dynamic eth0
    inet6 fe80::1/64 scope link
3: docker0: <NO-CARRIER,BROADCAST,MULTICAST,UP> mtu 1500 qdisc noqueue state DOWN group default
    inet 172.17.0.1/16 brd 172.17.255.255 scope global docker0
`

type fakeRunner struct {
	calls []string
	out   string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	return []byte(f.out), f.err
}

func TestActiveAddrs(t *testing.T) {
	run := &fakeRunner{out: ipAddrOutput}

	got, err := NewNetwork(run).ActiveAddrs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"inet 192.168.1.20/24 brd 192.168.1.255 scope global dynamic eth0",
		"inet 172.17.0.1/16 brd 172.17.255.255 scope global docker0",
	}, got)
	assert.Equal(t, []string{"ip addr"}, run.calls)
}

func TestActiveAddrsError(t *testing.T) {
	run := &fakeRunner{err: errors.New("permission denied")}

	_, err := NewNetwork(run).ActiveAddrs(context.Background())
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	ctx := context.Background()

	ok, err := NewNetwork(&fakeRunner{}).Ping(ctx, "8.8.8.8", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewNetwork(&fakeRunner{err: fmt.Errorf("ping: %w", &exec.ExitError{})}).Ping(ctx, "8.8.8.8", 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewNetwork(&fakeRunner{err: exec.ErrNotFound}).Ping(ctx, "8.8.8.8", 3, time.Second)
	assert.Error(t, err)
}

func TestTopProcesses(t *testing.T) {
	ps := []Proc{
		{Name: "a", CPU: 1, Memory: 9},
		{Name: "b", CPU: 50, Memory: 1},
		{Name: "c", CPU: 20, Memory: 5},
	}

	cpu := TopByCPU(ps, 2)
	require.Len(t, cpu, 2)
	assert.Equal(t, "b", cpu[0].Name)
	assert.Equal(t, "c", cpu[1].Name)

	memTop := TopByMemory(ps, 5)
	require.Len(t, memTop, 3)
	assert.Equal(t, "a", memTop[0].Name)

	// input untouched
	assert.Equal(t, "a", ps[0].Name)
}
