// Package ship tracks the last known control state of the selected ship
// from inbound server updates.
package ship

import (
	"sync/atomic"
	"time"
)

// View is a main-screen view direction.
type View string

const (
	ViewForward   View = "forward"
	ViewPort      View = "port"
	ViewStarboard View = "starboard"
	ViewAft       View = "aft"
)

// State is the last known control state of the selected ship.
type State struct {
	Ship       int       `json:"ship"`
	Steering   float64   `json:"steering"`
	Pitch      float64   `json:"pitch"`
	Impulse    float64   `json:"impulse"`
	MainScreen View      `json:"mainScreen"`
	RedAlert   bool      `json:"redAlert"`
	ShieldsUp  bool      `json:"shieldsUp"`
	Reverse    bool      `json:"reverse"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Update is an inbound state message. Nil fields are left unchanged.
type Update struct {
	Ship       int      `json:"ship"`
	Steering   *float64 `json:"steering,omitempty"`
	Pitch      *float64 `json:"pitch,omitempty"`
	Impulse    *float64 `json:"impulse,omitempty"`
	MainScreen *View    `json:"mainScreen,omitempty"`
	RedAlert   *bool    `json:"redAlert,omitempty"`
	ShieldsUp  *bool    `json:"shieldsUp,omitempty"`
	Reverse    *bool    `json:"reverse,omitempty"`
}

// Tracker holds the remote ship snapshot. Apply is called by the listener,
// Snapshot by the polling loop; the snapshot is replaced, never mutated.
type Tracker struct {
	ship    int
	current atomic.Pointer[State]
	now     func() time.Time
}

// NewTracker creates a tracker for the given ship index. Until the first
// update arrives the snapshot is the neutral state: centred controls,
// zero impulse, forward view.
func NewTracker(ship int) *Tracker {
	t := &Tracker{ship: ship, now: time.Now}
	t.current.Store(&State{Ship: ship, MainScreen: ViewForward})
	return t
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() State {
	return *t.current.Load()
}

// Apply overlays the present fields of u onto the snapshot. Updates for
// other ships are ignored and reported as false.
func (t *Tracker) Apply(u Update) bool {
	if u.Ship != t.ship {
		return false
	}

	next := *t.current.Load()
	if u.Steering != nil {
		next.Steering = *u.Steering
	}
	if u.Pitch != nil {
		next.Pitch = *u.Pitch
	}
	if u.Impulse != nil {
		next.Impulse = *u.Impulse
	}
	if u.MainScreen != nil {
		next.MainScreen = *u.MainScreen
	}
	if u.RedAlert != nil {
		next.RedAlert = *u.RedAlert
	}
	if u.ShieldsUp != nil {
		next.ShieldsUp = *u.ShieldsUp
	}
	if u.Reverse != nil {
		next.Reverse = *u.Reverse
	}
	next.UpdatedAt = t.now()

	t.current.Store(&next)
	return true
}
