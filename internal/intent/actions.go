package intent

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"opencode/internal/docker"
	"opencode/internal/sensors"
)

const (
	Farewell      = "Shutting down. Goodbye."
	HelpText      = "I can check system status, network status, list Docker containers, manage containers, run diagnostics, tell time and date, or open a browser."
	NotRecognized = "Command not recognized. Say help for available commands."

	statusUnavailable  = "Unable to retrieve system status."
	networkUnavailable = "Unable to query network status."
	noNetwork          = "No active network connections found."
	noContainers       = "No active Docker containers."
	dockerDenied       = "Docker not available or permission denied."
	dockerUnavailable  = "Unable to query Docker containers."
	containerError     = "Error managing container."
	diagnosticsOK      = "Diagnostics completed successfully."
	diagnosticsFailed  = "Diagnostics failed."
	diagnosticsMissing = "Diagnostics are not available."
	browserOpening     = "Opening browser."
	browserFailed      = "Unable to open the browser."

	StatusTimeout      = 5 * time.Second
	DiagnosticsTimeout = 60 * time.Second
)

type StatusReader interface {
	Status(ctx context.Context) (sensors.Status, error)
}

type NetworkReader interface {
	ActiveAddrs(ctx context.Context) ([]string, error)
}

type ContainerRuntime interface {
	Running(ctx context.Context) ([]string, error)
	Lifecycle(ctx context.Context, action docker.Action, name string) error
}

// Reporter writes a diagnostics report and returns where it was saved.
type Reporter interface {
	Run(ctx context.Context) (string, error)
}

type Starter interface {
	Start(name string, args ...string) error
}

// Actions holds the collaborators the handlers talk to.
type Actions struct {
	Status      StatusReader
	Network     NetworkReader
	Containers  ContainerRuntime
	Diagnostics Reporter
	Browser     Starter
	BrowserCmd  string
	BrowserURL  string
	Now         func() time.Time
}

// Rules returns the ordered rule table.
func (a *Actions) Rules() []Rule {
	return []Rule{
		{OpenBrowser, []string{"open browser"}, a.openBrowser},
		{Time, []string{"what time", "current time"}, a.tellTime},
		{Date, []string{"what date", "today's date"}, a.tellDate},
		{Diagnostics, []string{"run diagnostics", "diagnose"}, a.runDiagnostics},
		{SystemStatus, []string{"system status", "check system"}, a.systemStatus},
		{NetworkStatus, []string{"network status", "check network"}, a.networkStatus},
		{ListContainers, []string{"list containers", "docker status"}, a.listContainers},
		{RestartContainer, []string{"restart container"}, a.container(docker.Restart)},
		{StopContainer, []string{"stop container"}, a.container(docker.Stop)},
		{StartContainer, []string{"start container"}, a.container(docker.Start)},
		{Help, []string{"help", "what can you do"}, reply(HelpText)},
		{Shutdown, []string{"shutdown opencode", "stop listening", "exit"}, shutdown},
	}
}

// NewDispatcher builds the dispatcher over the standard rule table.
func (a *Actions) NewDispatcher() *Dispatcher {
	return NewDispatcher(a.Rules(), reply(NotRecognized))
}

func reply(text string, outcome ...Outcome) Handler {
	o := OK
	if len(outcome) > 0 {
		o = outcome[0]
	}
	return func(context.Context, Command) Result {
		return Result{Outcome: o, Text: text}
	}
}

func shutdown(context.Context, Command) Result {
	return Result{Outcome: Exit, Text: Farewell}
}

func failed(text string, err error) Result {
	return Result{Outcome: Failed, Text: text, Err: err}
}

func (a *Actions) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Actions) openBrowser(_ context.Context, _ Command) Result {
	if a.Browser == nil {
		return failed(browserFailed, errors.New("no browser launcher"))
	}

	bin := a.BrowserCmd
	if bin == "" {
		bin = "xdg-open"
	}
	if err := a.Browser.Start(bin, a.BrowserURL); err != nil {
		return failed(browserFailed, err)
	}

	return Result{Outcome: OK, Text: browserOpening}
}

func (a *Actions) tellTime(context.Context, Command) Result {
	return Result{Outcome: OK, Text: a.now().Format("The time is 03:04 PM")}
}

func (a *Actions) tellDate(context.Context, Command) Result {
	return Result{Outcome: OK, Text: a.now().Format("Today is Monday, January 02, 2006")}
}

func (a *Actions) runDiagnostics(ctx context.Context, _ Command) Result {
	if a.Diagnostics == nil {
		return failed(diagnosticsMissing, errors.New("no diagnostics reporter"))
	}

	ctx, cancel := context.WithTimeout(ctx, DiagnosticsTimeout)
	defer cancel()

	path, err := a.Diagnostics.Run(ctx)
	if err != nil {
		return failed(diagnosticsFailed, err)
	}

	log.Info("Diagnostics report saved", "path", path)

	return Result{Outcome: OK, Text: diagnosticsOK}
}

func (a *Actions) systemStatus(ctx context.Context, _ Command) Result {
	if a.Status == nil {
		return failed(statusUnavailable, errors.New("no status reader"))
	}

	ctx, cancel := context.WithTimeout(ctx, StatusTimeout)
	defer cancel()

	st, err := a.Status.Status(ctx)
	if err != nil {
		return failed(statusUnavailable, err)
	}

	return Result{Outcome: OK, Text: FormatStatus(st)}
}

// FormatStatus renders a status the way it is spoken.
func FormatStatus(st sensors.Status) string {
	s := fmt.Sprintf("CPU %.1f%%, Memory %.1f%%, Disk %.1f%%", st.CPU, st.Memory, st.Disk)
	if st.HasTemp {
		s += fmt.Sprintf(", Temperature %.1f°C", st.Temperature)
	}
	return s
}

func (a *Actions) networkStatus(ctx context.Context, _ Command) Result {
	if a.Network == nil {
		return failed(networkUnavailable, errors.New("no network reader"))
	}

	addrs, err := a.Network.ActiveAddrs(ctx)
	if err != nil {
		return failed(networkUnavailable, err)
	}
	if len(addrs) == 0 {
		return Result{Outcome: OK, Text: noNetwork}
	}

	return Result{Outcome: OK, Text: fmt.Sprintf("Network active. %d interface(s) connected.", len(addrs))}
}

func (a *Actions) listContainers(ctx context.Context, _ Command) Result {
	if a.Containers == nil {
		return failed(dockerUnavailable, errors.New("no container runtime"))
	}

	names, err := a.Containers.Running(ctx)
	switch {
	case errors.Is(err, docker.ErrCommand):
		return failed(dockerDenied, err)
	case err != nil:
		return failed(dockerUnavailable, err)
	case len(names) == 0:
		return Result{Outcome: OK, Text: noContainers}
	}

	shown := names
	if len(shown) > 3 {
		shown = shown[:3]
	}

	return Result{
		Outcome: OK,
		Text:    fmt.Sprintf("Running containers: %d. %s", len(names), strings.Join(shown, ", ")),
	}
}

// container handles start/stop/restart. The name is the last whitespace
// token of the normalized transcript, used as is; with two tokens or fewer the
// user is asked which container they meant and the runtime is not called.
func (a *Actions) container(action docker.Action) Handler {
	return func(ctx context.Context, cmd Command) Result {
		name := cmd.Container
		if name == "" {
			words := strings.Fields(cmd.Text)
			if len(words) <= 2 {
				return Result{
					Outcome: NeedsInput,
					Text:    fmt.Sprintf("Please specify which container to %s.", action),
				}
			}
			name = words[len(words)-1]
		}

		if a.Containers == nil {
			return failed(containerError, errors.New("no container runtime"))
		}

		err := a.Containers.Lifecycle(ctx, action, name)
		switch {
		case err == nil:
			return Result{Outcome: OK, Text: fmt.Sprintf("Container %s %s successfully.", name, action.Past())}
		case errors.Is(err, docker.ErrCommand), errors.Is(err, docker.ErrTimeout):
			return failed(fmt.Sprintf("Failed to %s container %s.", action, name), err)
		default:
			return failed(containerError, err)
		}
	}
}
