package yoke

// Device is the subset of joystick queries a poll needs.
type Device interface {
	NumAxes() int32
	Axis(index int32) int16
	NumButtons() int32
	Button(index int32) bool
	NumHats() int32
	Hat(index int32) uint8
}

// Sample reads one State from dev using m. Indices the device does not
// have are skipped.
func Sample(m *DeviceMapping, dev Device) State {
	state := State{
		Connected:  true,
		DeviceType: m.Name,
	}

	numAxes := dev.NumAxes()
	for _, am := range m.Axes {
		if am.Index < 0 || am.Index >= numAxes {
			continue
		}
		state.Axes.set(am.Target, int32(dev.Axis(am.Index)))
	}

	numButtons := dev.NumButtons()
	for _, bm := range m.Buttons {
		if bm.Index < 0 || bm.Index >= numButtons {
			continue
		}
		state.Buttons.set(bm.Target, dev.Button(bm.Index))
	}

	if m.HasHat && dev.NumHats() > 0 {
		state.Hat = Hat(dev.Hat(0))
	}
	return state
}
