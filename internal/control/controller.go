// Package control turns polled yoke states into simulation commands.
//
// Every tick the raw axis readings are calibrated and compared against the
// last known remote ship state; a command is sent only where the two
// differ. Buttons act on press edges.
package control

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soar/dianach/internal/calibration"
	"github.com/soar/dianach/internal/link"
	"github.com/soar/dianach/internal/ship"
	"github.com/soar/dianach/internal/yoke"
)

// DefaultEpsilon is the smallest change in a continuous control that is
// sent to the server.
const DefaultEpsilon = 0.01

// Sink accepts outbound commands.
type Sink interface {
	Send(ctx context.Context, cmd link.Command) error
}

// ShipSource supplies the last known remote ship state.
type ShipSource interface {
	Snapshot() ship.State
}

// FrameSink receives one Frame per tick.
type FrameSink interface {
	Publish(Frame)
}

// Controls holds calibrated outputs of one tick.
type Controls struct {
	Steering float64 `json:"steering"`
	Pitch    float64 `json:"pitch"`
	Throttle float64 `json:"throttle"`
	Impulse  float64 `json:"impulse"`
}

// Frame is the monitor record of one tick.
type Frame struct {
	Seq       int64            `json:"seq"`
	Timestamp int64            `json:"timestamp"`
	Connected bool             `json:"connected"`
	Device    string           `json:"device"`
	Raw       yoke.Readings    `json:"raw"`
	Controls  Controls         `json:"controls"`
	Hat       yoke.Hat         `json:"hat"`
	Buttons   yoke.ButtonState `json:"buttons"`
	Ship      ship.State       `json:"ship"`
	Sent      []link.Kind      `json:"sent,omitempty"`
}

// Options configures a Controller.
type Options struct {
	Ship    int
	Epsilon float64
	// Rand returns a value in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
}

// Controller holds per-session control state. It is driven from a single
// goroutine.
type Controller struct {
	opts   Options
	axes   map[yoke.Axis]*calibration.Axis
	sink   Sink
	remote ShipSource
	frames FrameSink

	prevButtons yoke.ButtonState
	overTravel  map[yoke.Axis]bool
	seq         int64
}

// New creates a controller. cal must contain a calibration for every
// axis in yoke.Axes.
func New(cal map[yoke.Axis]*calibration.Axis, sink Sink, remote ShipSource, opts Options) (*Controller, error) {
	for _, a := range yoke.Axes {
		if cal[a] == nil {
			return nil, pkgerrors.Errorf("missing calibration for %s axis", a)
		}
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Controller{
		opts:       opts,
		axes:       cal,
		sink:       sink,
		remote:     remote,
		overTravel: make(map[yoke.Axis]bool),
	}, nil
}

// SetFrameSink sets where frames are published. nil disables publishing.
func (c *Controller) SetFrameSink(f FrameSink) {
	c.frames = f
}

// Run ticks once per received state until ctx is done or states is closed.
func (c *Controller) Run(ctx context.Context, states <-chan yoke.State) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-states:
			if !ok {
				return nil
			}
			c.Tick(ctx, s)
		}
	}
}

// Tick processes one polled state and returns the resulting frame.
func (c *Controller) Tick(ctx context.Context, s yoke.State) Frame {
	remote := c.remote.Snapshot()

	c.seq++
	frame := Frame{
		Seq:       c.seq,
		Timestamp: time.Now().UnixMilli(),
		Connected: s.Connected,
		Device:    s.Name,
		Raw:       s.Axes,
		Hat:       s.Hat,
		Buttons:   s.Buttons,
		Ship:      remote,
	}

	if !s.Connected {
		c.prevButtons = yoke.ButtonState{}
		c.publish(frame)
		return frame
	}

	frame.Controls = Controls{
		Steering: c.evaluate(yoke.AxisYaw, s.Axes.Yaw),
		Pitch:    c.evaluate(yoke.AxisPitch, s.Axes.Pitch),
		Throttle: c.evaluate(yoke.AxisThrottle, s.Axes.Throttle),
	}
	frame.Controls.Impulse = (frame.Controls.Throttle + 1) / 2

	var cmds []link.Command
	cmds = append(cmds, c.steering(frame.Controls.Steering, remote)...)
	cmds = append(cmds, c.impulse(frame.Controls.Impulse, remote)...)
	cmds = append(cmds, c.climbDive(frame.Controls.Pitch, remote)...)
	cmds = append(cmds, c.view(s.Hat, remote)...)
	cmds = append(cmds, c.buttons(s.Buttons, remote)...)
	c.prevButtons = s.Buttons

	for _, cmd := range cmds {
		if err := c.sink.Send(ctx, cmd); err != nil {
			logrus.WithError(err).WithField("command", cmd.Kind).Warn("failed to send command")
			continue
		}
		frame.Sent = append(frame.Sent, cmd.Kind)
	}

	c.publish(frame)
	return frame
}

func (c *Controller) publish(f Frame) {
	if c.frames != nil {
		c.frames.Publish(f)
	}
}

// evaluate calibrates a reading and logs once when the axis travels past
// its calibrated span, and again when it returns.
func (c *Controller) evaluate(a yoke.Axis, raw int32) float64 {
	cal := c.axes[a]
	reading := float64(raw)

	out := !cal.InRange(reading)
	if out != c.overTravel[a] {
		c.overTravel[a] = out
		entry := logrus.WithFields(logrus.Fields{
			"axis":    a,
			"reading": raw,
			"output":  cal.Raw(reading),
		})
		if out {
			entry.Debug("axis beyond calibrated span, extrapolating")
		} else {
			entry.Debug("axis back within calibrated span")
		}
	}
	return cal.Evaluate(reading)
}

func (c *Controller) steering(v float64, remote ship.State) []link.Command {
	if math.Abs(v-remote.Steering) <= c.opts.Epsilon {
		return nil
	}
	return []link.Command{link.Steering(c.opts.Ship, v)}
}

func (c *Controller) impulse(v float64, remote ship.State) []link.Command {
	if math.Abs(v-remote.Impulse) <= c.opts.Epsilon {
		return nil
	}
	return []link.Command{link.Impulse(c.opts.Ship, v)}
}

// climbDive issues a single pitch step towards target with probability
// proportional to the remaining distance, capped at 1.
func (c *Controller) climbDive(target float64, remote ship.State) []link.Command {
	delta := target - remote.Pitch
	if math.Abs(delta) <= c.opts.Epsilon {
		return nil
	}
	if c.opts.Rand() >= math.Min(1, math.Abs(delta)) {
		return nil
	}
	direction := 1
	if delta < 0 {
		direction = -1
	}
	return []link.Command{link.ClimbDive(c.opts.Ship, direction)}
}

func hatView(h yoke.Hat) (ship.View, bool) {
	switch h {
	case yoke.HatUp:
		return ship.ViewForward, true
	case yoke.HatDown:
		return ship.ViewAft, true
	case yoke.HatLeft:
		return ship.ViewPort, true
	case yoke.HatRight:
		return ship.ViewStarboard, true
	}
	return "", false
}

func (c *Controller) view(h yoke.Hat, remote ship.State) []link.Command {
	v, ok := hatView(h)
	if !ok || v == remote.MainScreen {
		return nil
	}
	return []link.Command{link.MainScreen(c.opts.Ship, v)}
}

func (c *Controller) buttons(b yoke.ButtonState, remote ship.State) []link.Command {
	var cmds []link.Command
	for _, btn := range yoke.Buttons {
		if !b.Pressed(btn) || c.prevButtons.Pressed(btn) {
			continue
		}
		switch btn {
		case yoke.ButtonRedAlert:
			cmds = append(cmds, link.RedAlert(c.opts.Ship, !remote.RedAlert))
		case yoke.ButtonShields:
			cmds = append(cmds, link.Shields(c.opts.Ship, !remote.ShieldsUp))
		case yoke.ButtonReverse:
			cmds = append(cmds, link.Reverse(c.opts.Ship, !remote.Reverse))
		}
	}
	return cmds
}
