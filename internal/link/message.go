package link

import (
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/soar/dianach/internal/ship"
)

// Kind identifies an outbound command.
type Kind string

const (
	KindSteering   Kind = "steering"
	KindClimbDive  Kind = "climb_dive"
	KindImpulse    Kind = "impulse"
	KindMainScreen Kind = "main_screen"
	KindRedAlert   Kind = "red_alert"
	KindShields    Kind = "shields"
	KindReverse    Kind = "reverse"

	// typeShipState tags inbound ship state updates.
	typeShipState = "ship_state"
)

// Command is an outbound intent for one ship. Which payload field is
// meaningful depends on Kind.
type Command struct {
	Kind      Kind
	Ship      int
	Value     float64   // steering, impulse
	Direction int       // climb_dive: +1 climb, -1 dive
	View      ship.View // main_screen
	On        bool      // red_alert, shields, reverse
}

func Steering(shipIndex int, v float64) Command {
	return Command{Kind: KindSteering, Ship: shipIndex, Value: v}
}

func ClimbDive(shipIndex int, direction int) Command {
	return Command{Kind: KindClimbDive, Ship: shipIndex, Direction: direction}
}

func Impulse(shipIndex int, v float64) Command {
	return Command{Kind: KindImpulse, Ship: shipIndex, Value: v}
}

func MainScreen(shipIndex int, view ship.View) Command {
	return Command{Kind: KindMainScreen, Ship: shipIndex, View: view}
}

func RedAlert(shipIndex int, on bool) Command {
	return Command{Kind: KindRedAlert, Ship: shipIndex, On: on}
}

func Shields(shipIndex int, up bool) Command {
	return Command{Kind: KindShields, Ship: shipIndex, On: up}
}

func Reverse(shipIndex int, on bool) Command {
	return Command{Kind: KindReverse, Ship: shipIndex, On: on}
}

// envelope is the JSON form shared by both directions.
type envelope struct {
	Type      string     `json:"type"`
	Ship      int        `json:"ship"`
	Value     *float64   `json:"value,omitempty"`
	Direction *int       `json:"direction,omitempty"`
	View      *ship.View `json:"view,omitempty"`
	On        *bool      `json:"on,omitempty"`
}

// EncodeCommand returns the wire form of cmd.
func EncodeCommand(cmd Command) ([]byte, error) {
	env := envelope{Type: string(cmd.Kind), Ship: cmd.Ship}
	switch cmd.Kind {
	case KindSteering, KindImpulse:
		env.Value = &cmd.Value
	case KindClimbDive:
		if cmd.Direction != 1 && cmd.Direction != -1 {
			return nil, pkgerrors.Errorf("climb_dive direction must be +1 or -1, got %d", cmd.Direction)
		}
		env.Direction = &cmd.Direction
	case KindMainScreen:
		env.View = &cmd.View
	case KindRedAlert, KindShields, KindReverse:
		env.On = &cmd.On
	default:
		return nil, pkgerrors.Errorf("unknown command kind %q", cmd.Kind)
	}
	return json.Marshal(env)
}

// DecodeCommand parses the wire form of a command. Used by bridges and tests.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Command{}, pkgerrors.Wrapf(err, "failed to decode command")
	}
	cmd := Command{Kind: Kind(env.Type), Ship: env.Ship}
	if env.Value != nil {
		cmd.Value = *env.Value
	}
	if env.Direction != nil {
		cmd.Direction = *env.Direction
	}
	if env.View != nil {
		cmd.View = *env.View
	}
	if env.On != nil {
		cmd.On = *env.On
	}
	return cmd, nil
}

// EncodeUpdate returns the wire form of an inbound ship state update.
func EncodeUpdate(u ship.Update) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		ship.Update
	}{Type: typeShipState, Update: u})
}

// DecodeUpdate parses an inbound message. Messages of any other type are
// reported with ErrUnexpectedMessage.
func DecodeUpdate(data []byte) (ship.Update, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ship.Update{}, pkgerrors.Wrapf(err, "failed to decode message")
	}
	if head.Type != typeShipState {
		return ship.Update{}, pkgerrors.Wrapf(ErrUnexpectedMessage, "type %q", head.Type)
	}
	var u ship.Update
	if err := json.Unmarshal(data, &u); err != nil {
		return ship.Update{}, pkgerrors.Wrapf(err, "failed to decode ship state")
	}
	return u, nil
}
