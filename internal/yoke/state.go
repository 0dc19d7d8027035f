// Package yoke describes yoke input: raw readings, device mappings and
// per-tick snapshots.
package yoke

// Axis names a calibrated control channel.
type Axis string

const (
	AxisYaw      Axis = "yaw"
	AxisPitch    Axis = "pitch"
	AxisThrottle Axis = "throttle"
)

// Axes lists the control axes in display order.
var Axes = []Axis{AxisYaw, AxisPitch, AxisThrottle}

// Button names a function button.
type Button string

const (
	ButtonRedAlert Button = "red_alert"
	ButtonShields  Button = "shields"
	ButtonReverse  Button = "reverse"
)

// Buttons lists the function buttons.
var Buttons = []Button{ButtonRedAlert, ButtonShields, ButtonReverse}

// Hat is the SDL hat bitmask.
type Hat uint8

const (
	HatCentered Hat = 0x00
	HatUp       Hat = 0x01
	HatRight    Hat = 0x02
	HatDown     Hat = 0x04
	HatLeft     Hat = 0x08
)

// ButtonState holds the pressed state of each function button.
type ButtonState struct {
	RedAlert bool `json:"redAlert"`
	Shields  bool `json:"shields"`
	Reverse  bool `json:"reverse"`
}

// Pressed returns the state of b.
func (s ButtonState) Pressed(b Button) bool {
	switch b {
	case ButtonRedAlert:
		return s.RedAlert
	case ButtonShields:
		return s.Shields
	case ButtonReverse:
		return s.Reverse
	}
	return false
}

func (s *ButtonState) set(b Button, pressed bool) {
	switch b {
	case ButtonRedAlert:
		s.RedAlert = pressed
	case ButtonShields:
		s.Shields = pressed
	case ButtonReverse:
		s.Reverse = pressed
	}
}

// Readings holds raw axis values as reported by the device.
type Readings struct {
	Yaw      int32 `json:"yaw"`
	Pitch    int32 `json:"pitch"`
	Throttle int32 `json:"throttle"`
}

// Get returns the raw reading for a.
func (r Readings) Get(a Axis) int32 {
	switch a {
	case AxisYaw:
		return r.Yaw
	case AxisPitch:
		return r.Pitch
	case AxisThrottle:
		return r.Throttle
	}
	return 0
}

func (r *Readings) set(a Axis, v int32) {
	switch a {
	case AxisYaw:
		r.Yaw = v
	case AxisPitch:
		r.Pitch = v
	case AxisThrottle:
		r.Throttle = v
	}
}

// State is one polling tick of the active yoke.
type State struct {
	Connected  bool        `json:"connected"`
	DeviceType string      `json:"deviceType"`
	Name       string      `json:"name"`
	Axes       Readings    `json:"axes"`
	Hat        Hat         `json:"hat"`
	Buttons    ButtonState `json:"buttons"`
}
