// Package docker drives the container runtime through its CLI.
package docker

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"opencode/internal/shell"
)

var (
	// ErrNotInstalled means the CLI binary could not be found.
	ErrNotInstalled = errors.New("docker not installed")
	// ErrCommand means the CLI ran and exited non-zero (daemon down, permission denied, ...).
	ErrCommand = errors.New("docker command failed")
	// ErrTimeout means the CLI did not finish in time.
	ErrTimeout = errors.New("docker command timed out")
)

const (
	QueryTimeout     = 5 * time.Second
	LifecycleTimeout = 30 * time.Second
)

type Action string

const (
	Start   Action = "start"
	Stop    Action = "stop"
	Restart Action = "restart"
)

// Past is the past tense used in responses.
func (a Action) Past() string {
	switch a {
	case Start:
		return "started"
	case Stop:
		return "stopped"
	case Restart:
		return "restarted"
	}
	return string(a) + "ed"
}

type Container struct {
	Name   string
	Status string
	Size   string
}

type Client struct {
	bin string
	run shell.Runner
}

func New(bin string, run shell.Runner) *Client {
	if bin == "" {
		bin = "docker"
	}
	return &Client{bin: bin, run: run}
}

func (c *Client) exec(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	out, err := shell.RunTimeout(ctx, c.run, timeout, c.bin, args...)
	if err != nil {
		return "", classify(err)
	}
	return string(out), nil
}

func classify(err error) error {
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotInstalled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &exitErr):
		return fmt.Errorf("%w: %w", ErrCommand, err)
	}
	return err
}

// Running lists running containers as "name - status" lines.
func (c *Client) Running(ctx context.Context) ([]string, error) {
	out, err := c.exec(ctx, QueryTimeout, "ps", "--format", "{{.Names}} - {{.Status}}")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Containers lists running containers with their size.
func (c *Client) Containers(ctx context.Context) ([]Container, error) {
	out, err := c.exec(ctx, QueryTimeout, "ps", "--format", "{{.Names}}\t{{.Status}}\t{{.Size}}")
	if err != nil {
		return nil, err
	}

	var res []Container
	for _, line := range lines(out) {
		parts := strings.SplitN(line, "\t", 3)
		ct := Container{Name: parts[0]}
		if len(parts) > 1 {
			ct.Status = parts[1]
		}
		if len(parts) > 2 {
			ct.Size = parts[2]
		}
		res = append(res, ct)
	}
	return res, nil
}

// Lifecycle runs start, stop or restart. The name is passed through as is.
func (c *Client) Lifecycle(ctx context.Context, action Action, name string) error {
	_, err := c.exec(ctx, LifecycleTimeout, string(action), name)
	return err
}

func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.exec(ctx, QueryTimeout, "--version")
	return strings.TrimSpace(out), err
}

// DiskUsage returns the raw `docker system df` table.
func (c *Client) DiskUsage(ctx context.Context) (string, error) {
	return c.exec(ctx, 2*QueryTimeout, "system", "df")
}

func lines(out string) []string {
	var res []string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return res
}
