package intent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencode/internal/docker"
	"opencode/internal/sensors"
)

type fakeStatus struct {
	st  sensors.Status
	err error
}

func (f fakeStatus) Status(context.Context) (sensors.Status, error) { return f.st, f.err }

type fakeNetwork struct {
	addrs []string
	err   error
}

func (f fakeNetwork) ActiveAddrs(context.Context) ([]string, error) { return f.addrs, f.err }

type lifecycleCall struct {
	action docker.Action
	name   string
}

type fakeRuntime struct {
	running []string
	listErr error
	lcErr   error
	calls   []lifecycleCall
}

func (f *fakeRuntime) Running(context.Context) ([]string, error) { return f.running, f.listErr }

func (f *fakeRuntime) Lifecycle(_ context.Context, a docker.Action, name string) error {
	f.calls = append(f.calls, lifecycleCall{a, name})
	return f.lcErr
}

type fakeReporter struct {
	path string
	err  error
	runs int
}

func (f *fakeReporter) Run(context.Context) (string, error) {
	f.runs++
	return f.path, f.err
}

type fakeStarter struct {
	started []string
	err     error
}

func (f *fakeStarter) Start(name string, args ...string) error {
	f.started = append(f.started, fmt.Sprint(name, args))
	return f.err
}

func newActions() (*Actions, *fakeRuntime) {
	rt := &fakeRuntime{}
	return &Actions{
		Status:      fakeStatus{st: sensors.Status{CPU: 12.5, Memory: 40.14, Disk: 55}},
		Network:     fakeNetwork{addrs: []string{"inet 10.0.0.2/24"}},
		Containers:  rt,
		Diagnostics: &fakeReporter{path: "/tmp/r.txt"},
		Browser:     &fakeStarter{},
		BrowserURL:  "https://google.com",
		Now: func() time.Time {
			return time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
		},
	}, rt
}

func TestMatchOrder(t *testing.T) {
	a, _ := newActions()
	d := a.NewDispatcher()

	tests := []struct {
		text string
		want Name
	}{
		{"open browser", OpenBrowser},
		{"please open browser and tell me what time", OpenBrowser},
		{"What Time is it", Time},
		{"current time please", Time},
		{"what date is it", Date},
		{"what's today's date", Date},
		{"run diagnostics", Diagnostics},
		{"diagnose the machine", Diagnostics},
		{"system status", SystemStatus},
		{"check system", SystemStatus},
		{"network status", NetworkStatus},
		{"check network", NetworkStatus},
		{"list containers", ListContainers},
		{"docker status", ListContainers},
		{"restart container web", RestartContainer},
		{"stop container web", StopContainer},
		{"start container web", StartContainer},
		{"help", Help},
		{"what can you do", Help},
		{"shutdown opencode", Shutdown},
		{"stop listening", Shutdown},
		{"exit", Shutdown},
		{"  EXIT  ", Shutdown},
		{"tell me the time", Unrecognized},
		{"what's the time", Unrecognized},
		{"", Unrecognized},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Match(tt.text), tt.text)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	a, _ := newActions()
	d := a.NewDispatcher()

	texts := []string{"restart container web", "help", "check network", "nonsense"}
	first := make([]Name, len(texts))
	for i, txt := range texts {
		first[i] = d.Match(txt)
	}

	for round := 0; round < 3; round++ {
		for i := len(texts) - 1; i >= 0; i-- {
			assert.Equal(t, first[i], d.Match(texts[i]))
		}
	}
}

func TestRestartContainerScenario(t *testing.T) {
	a, rt := newActions()

	res := a.NewDispatcher().Dispatch(context.Background(), "restart container web")

	assert.Equal(t, RestartContainer, res.Name)
	assert.Equal(t, OK, res.Outcome)
	assert.Equal(t, "Container web restarted successfully.", res.Text)
	assert.Equal(t, []lifecycleCall{{docker.Restart, "web"}}, rt.calls)
}

func TestContainerNeedsName(t *testing.T) {
	for _, text := range []string{"restart container", "stop container", "start container", "  start container  "} {
		a, rt := newActions()
		res := a.NewDispatcher().Dispatch(context.Background(), text)

		assert.Equal(t, NeedsInput, res.Outcome, text)
		assert.Contains(t, res.Text, "Please specify which container to", text)
		assert.Empty(t, rt.calls, text)
	}

	a, _ := newActions()
	res := a.NewDispatcher().Dispatch(context.Background(), "stop container")
	assert.Equal(t, "Please specify which container to stop.", res.Text)
}

func TestContainerNameFromNormalizedText(t *testing.T) {
	a, rt := newActions()

	res := a.NewDispatcher().Dispatch(context.Background(), "please Start Container My_App-2")

	assert.Equal(t, StartContainer, res.Name)
	assert.Equal(t, "Container my_app-2 started successfully.", res.Text)
	assert.Equal(t, []lifecycleCall{{docker.Start, "my_app-2"}}, rt.calls)
}

func TestContainerNameIgnoresCase(t *testing.T) {
	a, rt := newActions()
	d := a.NewDispatcher()

	d.Dispatch(context.Background(), "Restart container Web")
	d.Dispatch(context.Background(), "restart container web")

	assert.Equal(t, []lifecycleCall{{docker.Restart, "web"}, {docker.Restart, "web"}}, rt.calls)
}

func TestContainerFailures(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: exit status 1", docker.ErrCommand), "Failed to stop container web."},
		{fmt.Errorf("%w: deadline", docker.ErrTimeout), "Failed to stop container web."},
		{fmt.Errorf("%w: not found", docker.ErrNotInstalled), "Error managing container."},
	}

	for _, tt := range tests {
		a, rt := newActions()
		rt.lcErr = tt.err

		res := a.NewDispatcher().Dispatch(context.Background(), "stop container web")
		assert.Equal(t, Failed, res.Outcome)
		assert.Equal(t, tt.want, res.Text)
		assert.ErrorIs(t, res.Err, tt.err)
	}
}

func TestTimeAndDate(t *testing.T) {
	a, _ := newActions()
	d := a.NewDispatcher()

	assert.Equal(t, "The time is 02:07 PM", d.Dispatch(context.Background(), "what time is it").Text)
	assert.Equal(t, "Today is Tuesday, March 05, 2024", d.Dispatch(context.Background(), "what date is it").Text)
}

func TestSystemStatus(t *testing.T) {
	a, _ := newActions()
	d := a.NewDispatcher()

	assert.Equal(t, "CPU 12.5%, Memory 40.1%, Disk 55.0%", d.Dispatch(context.Background(), "system status").Text)

	a.Status = fakeStatus{st: sensors.Status{CPU: 1, Memory: 2, Disk: 3, Temperature: 45.31, HasTemp: true}}
	assert.Equal(t, "CPU 1.0%, Memory 2.0%, Disk 3.0%, Temperature 45.3°C", a.NewDispatcher().Dispatch(context.Background(), "check system").Text)
}

func TestSensorFailuresFallBack(t *testing.T) {
	boom := errors.New("permission denied")
	ctx := context.Background()

	a, rt := newActions()
	a.Status = fakeStatus{err: boom}
	a.Network = fakeNetwork{err: boom}
	rt.listErr = fmt.Errorf("%w: not found", docker.ErrNotInstalled)
	d := a.NewDispatcher()

	res := d.Dispatch(ctx, "system status")
	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, "Unable to retrieve system status.", res.Text)

	res = d.Dispatch(ctx, "network status")
	assert.Equal(t, "Unable to query network status.", res.Text)

	res = d.Dispatch(ctx, "list containers")
	assert.Equal(t, "Unable to query Docker containers.", res.Text)

	rt.listErr = fmt.Errorf("%w: exit status 1", docker.ErrCommand)
	res = d.Dispatch(ctx, "docker status")
	assert.Equal(t, "Docker not available or permission denied.", res.Text)

	empty := &Actions{}
	d = empty.NewDispatcher()
	for _, text := range []string{"system status", "network status", "list containers", "run diagnostics", "open browser", "restart container web"} {
		res := d.Dispatch(ctx, text)
		assert.Equal(t, Failed, res.Outcome, text)
		assert.NotEmpty(t, res.Text, text)
	}
}

func TestNetworkStatus(t *testing.T) {
	a, _ := newActions()
	a.Network = fakeNetwork{addrs: []string{"a", "b"}}
	assert.Equal(t, "Network active. 2 interface(s) connected.", a.NewDispatcher().Dispatch(context.Background(), "check network").Text)

	a.Network = fakeNetwork{}
	assert.Equal(t, "No active network connections found.", a.NewDispatcher().Dispatch(context.Background(), "check network").Text)
}

func TestListContainers(t *testing.T) {
	a, rt := newActions()
	d := a.NewDispatcher()

	assert.Equal(t, "No active Docker containers.", d.Dispatch(context.Background(), "list containers").Text)

	rt.running = []string{"web - Up", "db - Up", "cache - Up", "queue - Up"}
	assert.Equal(t, "Running containers: 4. web - Up, db - Up, cache - Up", d.Dispatch(context.Background(), "list containers").Text)
}

func TestDiagnostics(t *testing.T) {
	a, _ := newActions()
	rep := &fakeReporter{path: "/tmp/x"}
	a.Diagnostics = rep

	res := a.NewDispatcher().Dispatch(context.Background(), "run diagnostics")
	assert.Equal(t, "Diagnostics completed successfully.", res.Text)
	assert.Equal(t, 1, rep.runs)

	rep.err = errors.New("disk full")
	res = a.NewDispatcher().Dispatch(context.Background(), "diagnose")
	assert.Equal(t, "Diagnostics failed.", res.Text)
	assert.Equal(t, Failed, res.Outcome)
}

func TestOpenBrowser(t *testing.T) {
	a, _ := newActions()
	st := &fakeStarter{}
	a.Browser = st

	res := a.NewDispatcher().Dispatch(context.Background(), "open browser")
	assert.Equal(t, "Opening browser.", res.Text)
	assert.Equal(t, []string{"xdg-open[https://google.com]"}, st.started)
}

func TestHelpShutdownFallback(t *testing.T) {
	a, _ := newActions()
	d := a.NewDispatcher()

	assert.Equal(t, HelpText, d.Dispatch(context.Background(), "help").Text)

	res := d.Dispatch(context.Background(), "stop listening")
	assert.Equal(t, Exit, res.Outcome)
	assert.Equal(t, Farewell, res.Text)

	res = d.Dispatch(context.Background(), "sing me a song")
	assert.Equal(t, Unrecognized, res.Name)
	assert.Equal(t, OK, res.Outcome)
	assert.Equal(t, NotRecognized, res.Text)
}

func TestPanicIsRecovered(t *testing.T) {
	d := NewDispatcher([]Rule{{
		Name:    "boom",
		Phrases: []string{"boom"},
		Handle:  func(context.Context, Command) Result { panic("kaboom") },
	}}, nil)

	res := d.Dispatch(context.Background(), "boom")
	assert.Equal(t, Failed, res.Outcome)
	assert.NotEmpty(t, res.Text)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "kaboom")
}

type fakeClassifier struct {
	c   Classification
	err error
	got []Name
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, names []Name) (Classification, error) {
	f.got = names
	return f.c, f.err
}

func TestClassifierFallback(t *testing.T) {
	a, rt := newActions()
	cl := &fakeClassifier{c: Classification{Name: RestartContainer, Container: "web"}}
	d := a.NewDispatcher().WithClassifier(cl)

	res := d.Dispatch(context.Background(), "could you bounce the web box")
	assert.Equal(t, RestartContainer, res.Name)
	assert.Equal(t, "Container web restarted successfully.", res.Text)
	assert.Equal(t, []lifecycleCall{{docker.Restart, "web"}}, rt.calls)
	assert.Contains(t, cl.got, Help)

	// rules still win over the classifier
	assert.Equal(t, HelpText, d.Dispatch(context.Background(), "help").Text)
}

func TestClassifierUnknownOrError(t *testing.T) {
	a, _ := newActions()

	d := a.NewDispatcher().WithClassifier(&fakeClassifier{c: Classification{Name: "weather"}})
	assert.Equal(t, NotRecognized, d.Dispatch(context.Background(), "weather?").Text)

	d = a.NewDispatcher().WithClassifier(&fakeClassifier{err: errors.New("offline")})
	assert.Equal(t, NotRecognized, d.Dispatch(context.Background(), "weather?").Text)
}
