// Package intent maps a spoken command onto exactly one action.
//
// Rules are evaluated in order and the first whose phrase occurs in the
// normalized transcript wins. Order is significant: "restart container"
// contains "start container" and must be tested first.
package intent

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
)

type Name string

const (
	OpenBrowser      Name = "open_browser"
	Time             Name = "time"
	Date             Name = "date"
	Diagnostics      Name = "diagnostics"
	SystemStatus     Name = "system_status"
	NetworkStatus    Name = "network_status"
	ListContainers   Name = "list_containers"
	RestartContainer Name = "restart_container"
	StopContainer    Name = "stop_container"
	StartContainer   Name = "start_container"
	Help             Name = "help"
	Shutdown         Name = "shutdown"
	Unrecognized     Name = "unrecognized"
)

type Outcome int

const (
	OK Outcome = iota
	Failed
	NeedsInput
	Exit
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Failed:
		return "failed"
	case NeedsInput:
		return "needs_input"
	case Exit:
		return "exit"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is what every action returns. Text is always speakable; Err
// carries the cause of a failure for the log only.
type Result struct {
	Name    Name
	Outcome Outcome
	Text    string
	Err     error
}

// Command is one transcript as seen by a handler.
type Command struct {
	Raw       string // as transcribed, trimmed
	Text      string // normalized, used for matching
	Container string // set by the classifier when it extracted a name
}

type Handler func(ctx context.Context, cmd Command) Result

type Rule struct {
	Name    Name
	Phrases []string
	Handle  Handler
}

func (r Rule) Matches(text string) bool {
	for _, p := range r.Phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Classification is the classifier's guess for a transcript no rule matched.
type Classification struct {
	Name      Name
	Container string
}

type Classifier interface {
	Classify(ctx context.Context, transcript string, names []Name) (Classification, error)
}

type Dispatcher struct {
	rules    []Rule
	fallback Handler
	classify Classifier
}

func NewDispatcher(rules []Rule, fallback Handler) *Dispatcher {
	return &Dispatcher{rules: rules, fallback: fallback}
}

// WithClassifier enables classification of otherwise unrecognized commands.
func (d *Dispatcher) WithClassifier(c Classifier) *Dispatcher {
	d.classify = c
	return d
}

// Normalize lower-cases and trims a transcript.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Match returns the first rule matching the transcript. It performs no I/O.
func (d *Dispatcher) Match(text string) Name {
	if r, ok := d.match(Normalize(text)); ok {
		return r.Name
	}
	return Unrecognized
}

func (d *Dispatcher) match(text string) (Rule, bool) {
	for _, r := range d.rules {
		if r.Matches(text) {
			return r, true
		}
	}
	return Rule{}, false
}

func (d *Dispatcher) lookup(name Name) (Rule, bool) {
	for _, r := range d.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

func (d *Dispatcher) Names() []Name {
	names := make([]Name, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name
	}
	return names
}

// Dispatch runs the matching handler. It never panics and always returns
// speakable text.
func (d *Dispatcher) Dispatch(ctx context.Context, transcript string) Result {
	cmd := Command{Raw: strings.TrimSpace(transcript), Text: Normalize(transcript)}
	log.Info("Processing command", "text", cmd.Text)

	rule, ok := d.match(cmd.Text)
	if !ok && d.classify != nil {
		rule, ok = d.classified(ctx, &cmd)
	}
	if !ok {
		rule = Rule{Name: Unrecognized, Handle: d.fallback}
	}

	res := d.run(ctx, rule, cmd)
	if res.Name == "" {
		res.Name = rule.Name
	}

	return res
}

func (d *Dispatcher) classified(ctx context.Context, cmd *Command) (Rule, bool) {
	c, err := d.classify.Classify(ctx, cmd.Raw, d.Names())
	if err != nil {
		log.Warn("Classifier failed", "err", err)
		return Rule{}, false
	}

	rule, ok := d.lookup(c.Name)
	if !ok {
		return Rule{}, false
	}

	log.Info("Classified command", "intent", c.Name, "container", c.Container)
	cmd.Container = c.Container

	return rule, true
}

func (d *Dispatcher) run(ctx context.Context, rule Rule, cmd Command) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Name:    rule.Name,
				Outcome: Failed,
				Text:    "Something went wrong while handling that command.",
				Err:     fmt.Errorf("handler %s panicked: %v", rule.Name, r),
			}
		}
	}()

	return rule.Handle(ctx, cmd)
}
