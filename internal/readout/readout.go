// Package readout renders live calibrated axis values and collects the
// range an axis was swept through.
package readout

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/soar/dianach/internal/calibration"
	"github.com/soar/dianach/internal/yoke"
)

// Tracker records the extremes and the resting position seen on each axis
// while the user sweeps the yoke.
type Tracker struct {
	seen   map[yoke.Axis]bool
	min    map[yoke.Axis]int32
	max    map[yoke.Axis]int32
	centre map[yoke.Axis]int32
}

func NewTracker() *Tracker {
	return &Tracker{
		seen:   make(map[yoke.Axis]bool),
		min:    make(map[yoke.Axis]int32),
		max:    make(map[yoke.Axis]int32),
		centre: make(map[yoke.Axis]int32),
	}
}

// Observe folds a connected state into the tracker. The first reading of an
// axis is taken as its centre.
func (t *Tracker) Observe(s yoke.State) {
	if !s.Connected {
		return
	}
	for _, a := range yoke.Axes {
		v := s.Axes.Get(a)
		if !t.seen[a] {
			t.seen[a] = true
			t.min[a], t.max[a], t.centre[a] = v, v, v
			continue
		}
		t.min[a] = min(t.min[a], v)
		t.max[a] = max(t.max[a], v)
	}
}

// Range returns the observed min, centre and max of a, and whether a was
// seen at all.
func (t *Tracker) Range(a yoke.Axis) (lo, centre, hi int32, ok bool) {
	return t.min[a], t.centre[a], t.max[a], t.seen[a]
}

// Suggest writes config lines for every axis that was swept. Axes whose
// range never opened up are reported as skipped. A centre that sits at an
// end of travel, as with a lever parked at idle, is left out so the axis
// loads with the midpoint instead.
func (t *Tracker) Suggest(w io.Writer) {
	fmt.Fprintln(w, "axes:")
	for _, a := range yoke.Axes {
		lo, centre, hi, ok := t.Range(a)
		if !ok || lo == hi {
			fmt.Fprintf(w, "  # %s: not moved, skipped\n", a)
			continue
		}
		fmt.Fprintf(w, "  %s:\n", a)
		fmt.Fprintf(w, "    min: %d\n", lo)
		if centre == lo || centre == hi {
			fmt.Fprintf(w, "    # centre: started at an end of travel, midpoint used\n")
		} else {
			fmt.Fprintf(w, "    centre: %d\n", centre)
		}
		fmt.Fprintf(w, "    max: %d\n", hi)
	}
}

var (
	outOfSpan = color.New(color.FgRed)
	inDead    = color.New(color.Faint)
	inSpan    = color.New(color.FgGreen)
	waiting   = color.New(color.FgYellow)
)

func formatAxis(a yoke.Axis, raw int32, cal *calibration.Axis) string {
	x := float64(raw)
	v := cal.Evaluate(x)
	c := inSpan
	switch {
	case !cal.InRange(x):
		c = outOfSpan
	case v == 0:
		c = inDead
	}
	return fmt.Sprintf("%s %6d %s", a, raw, c.Sprintf("%+.3f", v))
}

// FormatLine renders one state as a single status line.
func FormatLine(s yoke.State, cal map[yoke.Axis]*calibration.Axis) string {
	if !s.Connected {
		return waiting.Sprint("waiting for yoke...")
	}
	parts := make([]string, 0, len(yoke.Axes))
	for _, a := range yoke.Axes {
		parts = append(parts, formatAxis(a, s.Axes.Get(a), cal[a]))
	}
	return strings.Join(parts, "  ")
}

// Run redraws the status line for every state until ctx is done or the
// channel closes, and returns what was observed.
func Run(ctx context.Context, states <-chan yoke.State, cal map[yoke.Axis]*calibration.Axis, out io.Writer) *Tracker {
	tracker := NewTracker()
	for {
		select {
		case <-ctx.Done():
			return tracker
		case s, ok := <-states:
			if !ok {
				return tracker
			}
			tracker.Observe(s)
			fmt.Fprintf(out, "\r\033[K%s", FormatLine(s, cal))
		}
	}
}
