package audio

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"opencode/internal/shell"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

const maxVolume = 150

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id   int
	from int
	to   int
}

// Ducker lowers every pulse sink-input except our own while the assistant
// is armed, and restores the saved volumes afterwards.
type Ducker struct {
	mu       sync.Mutex
	run      shell.Runner
	active   bool
	self     []string
	saved    map[int]int
	floor    int
	factor   float64
	duration time.Duration
}

func NewDucker(run shell.Runner, self []string, floor int, factor float64, duration time.Duration) *Ducker {
	floor = clampVolume(floor)
	if factor < 0 || factor > 1 {
		factor = 1
	}

	return &Ducker{
		run:      run,
		self:     append([]string(nil), self...),
		saved:    make(map[int]int),
		floor:    floor,
		factor:   factor,
		duration: duration,
	}
}

// Duck fades other streams down to factor of their volume, never below floor.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.saved = make(map[int]int)

	var fades []fade
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}

		to := int(math.Round(float64(in.Volume) * d.factor))
		if to < d.floor {
			to = d.floor
		}

		d.saved[in.ID] = in.Volume
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: clampVolume(to)})
	}

	if err := d.apply(ctx, fades); err != nil {
		return err
	}

	d.active = true

	return nil
}

// Unduck restores streams that were ducked and still exist.
func (d *Ducker) Unduck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, in := range inputs {
		orig, ok := d.saved[in.ID]
		if !ok || d.isSelf(in) {
			continue
		}
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: orig})
	}

	if err := d.apply(ctx, fades); err != nil {
		return err
	}

	d.saved = make(map[int]int)
	d.active = false

	return nil
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.self {
		if strings.EqualFold(in.AppName, name) {
			return true
		}
	}
	return false
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.run.Run(ctx, "pactl", "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("list sink inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (d *Ducker) apply(ctx context.Context, fades []fade) error {
	if len(fades) == 0 {
		return nil
	}

	const minStep = 10 * time.Millisecond

	steps := int(d.duration / minStep)
	if steps < 1 {
		steps = 1
	}
	pause := d.duration / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.setVolume(ctx, f.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", f.id, err)
			}
		}

		if i < steps && pause > 0 {
			time.Sleep(pause)
		}
	}

	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	arg := fmt.Sprintf("%d%%", clampVolume(percent))
	_, err := d.run.Run(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg)
	return err
}

// parseSinkInputs reads the block format of `pactl list sink-inputs`.
func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	if len(blocks) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range blocks[1:] {
		nl := strings.IndexByte(block, '\n')
		if nl <= 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(block[:nl]))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id, Volume: -1}
		for _, line := range strings.Split(block[nl+1:], "\n") {
			line = strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(line, "Volume:") && in.Volume < 0:
				if m := percentRe.FindStringSubmatch(line); len(m) == 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						in.Volume = v
					}
				}
			case strings.HasPrefix(line, "application.name =") && in.AppName == "":
				in.AppName = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "application.name =")), `"`)
			}
		}

		if in.Volume < 0 {
			continue
		}
		res = append(res, in)
	}

	return res
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxVolume {
		return maxVolume
	}
	return v
}
