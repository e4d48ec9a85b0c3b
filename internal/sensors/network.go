package sensors

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"opencode/internal/shell"
)

const NetworkTimeout = 5 * time.Second

// Network inspects `ip addr` output.
type Network struct {
	run shell.Runner
}

func NewNetwork(run shell.Runner) *Network { return &Network{run: run} }

// ActiveAddrs returns the non-loopback IPv4 address lines.
func (n *Network) ActiveAddrs(ctx context.Context) ([]string, error) {
	out, err := shell.RunTimeout(ctx, n.run, NetworkTimeout, "ip", "addr")
	if err != nil {
		return nil, fmt.Errorf("ip addr: %w", err)
	}
	return parseInet(string(out)), nil
}

// Ping reports whether host answered. A non-zero exit means unreachable;
// any other failure (missing binary, timeout) is returned as an error.
func (n *Network) Ping(ctx context.Context, host string, count int, timeout time.Duration) (bool, error) {
	_, err := shell.RunTimeout(ctx, n.run, timeout, "ping", "-c", fmt.Sprint(count), host)
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

func parseInet(out string) []string {
	var res []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "inet ") && !strings.Contains(line, "127.0.0.1") {
			res = append(res, strings.TrimSpace(line))
		}
	}
	return res
}
