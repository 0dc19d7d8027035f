package hub

import (
	"math"

	"github.com/soar/dianach/internal/control"
	"github.com/soar/dianach/internal/ship"
	"github.com/soar/dianach/internal/yoke"
)

// DeltaChanges carries the parts of a frame that changed.
type DeltaChanges struct {
	Connected *bool             `json:"connected,omitempty"`
	Device    *string           `json:"device,omitempty"`
	Raw       *yoke.Readings    `json:"raw,omitempty"`
	Controls  *control.Controls `json:"controls,omitempty"`
	Hat       *yoke.Hat         `json:"hat,omitempty"`
	Buttons   *yoke.ButtonState `json:"buttons,omitempty"`
	Ship      *ship.State       `json:"ship,omitempty"`
}

func (d *DeltaChanges) IsEmpty() bool {
	return d.Connected == nil &&
		d.Device == nil &&
		d.Raw == nil &&
		d.Controls == nil &&
		d.Hat == nil &&
		d.Buttons == nil &&
		d.Ship == nil
}

const analogThreshold = 0.01

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < analogThreshold
}

func ComputeDelta(old, new_ control.Frame) *DeltaChanges {
	d := &DeltaChanges{}

	if old.Connected != new_.Connected {
		d.Connected = &new_.Connected
	}
	if old.Device != new_.Device {
		d.Device = &new_.Device
	}
	if old.Raw != new_.Raw {
		d.Raw = &new_.Raw
	}
	if old.Hat != new_.Hat {
		d.Hat = &new_.Hat
	}
	if old.Buttons != new_.Buttons {
		d.Buttons = &new_.Buttons
	}

	if !floatEqual(old.Controls.Steering, new_.Controls.Steering) ||
		!floatEqual(old.Controls.Pitch, new_.Controls.Pitch) ||
		!floatEqual(old.Controls.Throttle, new_.Controls.Throttle) ||
		!floatEqual(old.Controls.Impulse, new_.Controls.Impulse) {
		d.Controls = &new_.Controls
	}

	if !old.Ship.UpdatedAt.Equal(new_.Ship.UpdatedAt) || old.Ship.Ship != new_.Ship.Ship {
		d.Ship = &new_.Ship
	}

	return d
}
