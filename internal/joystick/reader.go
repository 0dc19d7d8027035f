// Package joystick polls the active yoke through the SDL3 joystick API.
package joystick

import (
	"context"
	"runtime"
	"time"

	"github.com/jupiterrider/purego-sdl3/sdl"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soar/dianach/internal/yoke"
)

// DefaultPollHz is the polling cadence used when Options leaves it unset.
const DefaultPollHz = 15

type sdlDevice struct {
	js *sdl.Joystick
}

func (d sdlDevice) NumAxes() int32          { return sdl.GetNumJoystickAxes(d.js) }
func (d sdlDevice) Axis(index int32) int16  { return sdl.GetJoystickAxis(d.js, index) }
func (d sdlDevice) NumButtons() int32       { return sdl.GetNumJoystickButtons(d.js) }
func (d sdlDevice) Button(index int32) bool { return sdl.GetJoystickButton(d.js, index) }
func (d sdlDevice) NumHats() int32          { return sdl.GetNumJoystickHats(d.js) }
func (d sdlDevice) Hat(index int32) uint8   { return sdl.GetJoystickHat(d.js, index) }

type joystickInfo struct {
	joystick *sdl.Joystick
	mapping  *yoke.DeviceMapping
	name     string
	id       sdl.JoystickID
}

// Options configures a Reader.
type Options struct {
	PollHz    int
	Overrides yoke.Overrides
}

// Reader polls the active yoke through the SDL3 joystick API and emits one
// State per tick.
type Reader struct {
	opts      Options
	latest    yoke.Snapshot
	joysticks map[sdl.JoystickID]*joystickInfo
	activeID  sdl.JoystickID // the first connected joystick
	hasActive bool
	states    chan yoke.State
}

func NewReader(opts Options) *Reader {
	if opts.PollHz <= 0 {
		opts.PollHz = DefaultPollHz
	}
	return &Reader{
		opts:      opts,
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
		states:    make(chan yoke.State, 64),
	}
}

// States returns the channel on which each polled state is sent. It is
// closed when Run returns.
func (r *Reader) States() <-chan yoke.State {
	return r.states
}

// CurrentState returns the latest polled state.
func (r *Reader) CurrentState() yoke.State {
	return r.latest.Load()
}

// Run initializes SDL and runs the event and polling loop on a locked OS
// thread until ctx is done.
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.states)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !sdl.Init(sdl.InitJoystick) {
		return pkgerrors.Errorf("SDL init failed: %s", sdl.GetError())
	}
	defer sdl.Quit()

	logrus.WithField("pollHz", r.opts.PollHz).Info("SDL3 joystick subsystem initialized")

	for _, id := range sdl.GetJoysticks() {
		r.openJoystick(id)
	}

	interval := time.Second / time.Duration(r.opts.PollHz)
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		default:
		}

		start := time.Now()
		r.processEvents()
		r.pollState()
		if rest := interval - time.Since(start); rest > 0 {
			sdl.DelayNS(uint64(rest.Nanoseconds()))
		}
	}
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			r.openJoystick(event.JDevice().Which)

		case sdl.EventJoystickRemoved:
			r.removeJoystick(event.JDevice().Which)

		case sdl.EventJoystickButtonDown:
			be := event.JButton()
			logrus.Debugf("button down: index=%d joystick=%d", be.Button, be.Which)

		case sdl.EventJoystickHatMotion:
			he := event.JHat()
			logrus.Debugf("hat: index=%d value=0x%02X joystick=%d", he.Hat, he.Value, he.Which)
		}
	}
}

func (r *Reader) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		logrus.Warnf("failed to open joystick %d: %s", instanceID, sdl.GetError())
		return
	}

	jsID := sdl.GetJoystickID(js)
	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	name := sdl.GetJoystickName(js)
	mapping := r.opts.Overrides.Apply(yoke.GetMapping(vendorID, productID))

	info := &joystickInfo{
		joystick: js,
		mapping:  mapping,
		name:     name,
		id:       jsID,
	}
	r.joysticks[jsID] = info

	logrus.WithFields(logrus.Fields{
		"name":    name,
		"vid":     vendorID,
		"pid":     productID,
		"mapping": mapping.Name,
		"axes":    sdl.GetNumJoystickAxes(js),
		"buttons": sdl.GetNumJoystickButtons(js),
		"hats":    sdl.GetNumJoystickHats(js),
	}).Info("joystick connected")

	if !r.hasActive {
		r.activate(info)
	}
}

func (r *Reader) activate(info *joystickInfo) {
	r.activeID = info.id
	r.hasActive = true
	logrus.WithField("name", info.name).Info("active yoke set")

	state := yoke.Sample(info.mapping, sdlDevice{js: info.joystick})
	state.Name = info.name
	r.latest.Store(state)
	r.emit(state)
}

func (r *Reader) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := r.joysticks[instanceID]
	if !exists {
		return
	}

	logrus.WithField("name", info.name).Warn("joystick disconnected")
	sdl.CloseJoystick(info.joystick)
	delete(r.joysticks, instanceID)

	if !r.hasActive || r.activeID != instanceID {
		return
	}
	r.hasActive = false
	for _, js := range r.joysticks {
		if sdl.JoystickConnected(js.joystick) {
			r.activate(js)
			return
		}
	}

	r.latest.Store(yoke.State{})
	r.emit(yoke.State{})
}

func (r *Reader) closeAll() {
	for id, info := range r.joysticks {
		sdl.CloseJoystick(info.joystick)
		delete(r.joysticks, id)
	}
}

func (r *Reader) pollState() {
	if !r.hasActive {
		return
	}

	info, exists := r.joysticks[r.activeID]
	if !exists || !sdl.JoystickConnected(info.joystick) {
		return
	}

	state := yoke.Sample(info.mapping, sdlDevice{js: info.joystick})
	state.Name = info.name
	r.latest.Store(state)
	r.emit(state)
}

func (r *Reader) emit(s yoke.State) {
	select {
	case r.states <- s:
	default:
		// Drop if the consumer lags so the SDL thread never blocks.
	}
}
