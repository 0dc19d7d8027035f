package yoke

// AxisMapping binds a raw axis index to a control axis.
type AxisMapping struct {
	Index  int32
	Target Axis
}

// ButtonMapping binds a raw button index to a function button.
type ButtonMapping struct {
	Index  int32
	Target Button
}

// DeviceMapping holds the complete mapping for a specific device type.
type DeviceMapping struct {
	Name    string
	Axes    []AxisMapping
	Buttons []ButtonMapping
	HasHat  bool
}

// Overrides replaces individual indices of a DeviceMapping. Targets absent
// from the maps keep the device default.
type Overrides struct {
	Axes    map[Axis]int32
	Buttons map[Button]int32
}

// Apply returns a copy of m with the overrides applied. A target missing
// from m is appended.
func (o Overrides) Apply(m *DeviceMapping) *DeviceMapping {
	out := &DeviceMapping{
		Name:    m.Name,
		Axes:    append([]AxisMapping(nil), m.Axes...),
		Buttons: append([]ButtonMapping(nil), m.Buttons...),
		HasHat:  m.HasHat,
	}

	for _, target := range Axes {
		idx, ok := o.Axes[target]
		if !ok {
			continue
		}
		found := false
		for i := range out.Axes {
			if out.Axes[i].Target == target {
				out.Axes[i].Index = idx
				found = true
			}
		}
		if !found {
			out.Axes = append(out.Axes, AxisMapping{Index: idx, Target: target})
		}
	}

	for _, target := range Buttons {
		idx, ok := o.Buttons[target]
		if !ok {
			continue
		}
		found := false
		for i := range out.Buttons {
			if out.Buttons[i].Target == target {
				out.Buttons[i].Index = idx
				found = true
			}
		}
		if !found {
			out.Buttons = append(out.Buttons, ButtonMapping{Index: idx, Target: target})
		}
	}

	return out
}

// Built-in mappings.

// chYokeMapping covers the CH Products Flight Sim Yoke: wheel, column and
// the leftmost lever.
var chYokeMapping = &DeviceMapping{
	Name: "ch_yoke",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisYaw},
		{Index: 1, Target: AxisPitch},
		{Index: 2, Target: AxisThrottle},
	},
	Buttons: []ButtonMapping{
		{Index: 0, Target: ButtonShields},
		{Index: 1, Target: ButtonReverse},
		{Index: 4, Target: ButtonRedAlert},
	},
	HasHat: true,
}

var genericMapping = &DeviceMapping{
	Name: "generic",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisYaw},
		{Index: 1, Target: AxisPitch},
		{Index: 2, Target: AxisThrottle},
	},
	Buttons: []ButtonMapping{
		{Index: 0, Target: ButtonShields},
		{Index: 1, Target: ButtonReverse},
		{Index: 2, Target: ButtonRedAlert},
	},
	HasHat: true,
}

type deviceKey struct {
	VendorID  uint16
	ProductID uint16
}

var knownDevices = map[deviceKey]*DeviceMapping{
	{0x068E, 0x00FF}: chYokeMapping, // CH Flight Sim Yoke USB
}

// GetMapping returns the mapping for a device identified by vendor/product ID,
// falling back to the generic mapping.
func GetMapping(vendorID, productID uint16) *DeviceMapping {
	if m, ok := knownDevices[deviceKey{VendorID: vendorID, ProductID: productID}]; ok {
		return m
	}
	return genericMapping
}
