package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadCommand is returned for a command line that does not describe a gesture.
var ErrBadCommand = errors.New("bad gesture command")

// ParseCommand reads one gesture from a text line, as typed at a terminal:
//
//	down <id>
//	drag <id>
//	move <id> <x> <y>
//	drop <id> [<player> <slot>]
//	cancel <id>
//	ability <id> <index>
func ParseCommand(line string) (Gesture, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Gesture{}, fmt.Errorf("%w: %q", ErrBadCommand, line)
	}
	verb, id, rest := fields[0], fields[1], fields[2:]

	switch verb {
	case "down":
		return Gesture{Kind: GesturePointerDown, InstanceID: id}, arity(line, rest, 0)
	case "drag":
		return Gesture{Kind: GestureDragStart, InstanceID: id}, arity(line, rest, 0)
	case "cancel":
		return Gesture{Kind: GestureCancel, InstanceID: id}, arity(line, rest, 0)
	case "move":
		if err := arity(line, rest, 2); err != nil {
			return Gesture{}, err
		}
		x, errX := strconv.ParseFloat(rest[0], 64)
		y, errY := strconv.ParseFloat(rest[1], 64)
		if errX != nil || errY != nil {
			return Gesture{}, fmt.Errorf("%w: bad coordinates in %q", ErrBadCommand, line)
		}
		return Gesture{Kind: GestureDragMove, InstanceID: id, X: x, Y: y}, nil
	case "drop":
		if len(rest) == 0 {
			return Gesture{Kind: GestureDrop, InstanceID: id}, nil
		}
		if err := arity(line, rest, 2); err != nil {
			return Gesture{}, err
		}
		slot, err := strconv.Atoi(rest[1])
		if err != nil {
			return Gesture{}, fmt.Errorf("%w: bad slot in %q", ErrBadCommand, line)
		}
		return Gesture{Kind: GestureDrop, InstanceID: id, Target: &Target{PlayerID: rest[0], Slot: slot}}, nil
	case "ability":
		if err := arity(line, rest, 1); err != nil {
			return Gesture{}, err
		}
		idx, err := strconv.Atoi(rest[0])
		if err != nil || idx < 0 {
			return Gesture{}, fmt.Errorf("%w: bad ability index in %q", ErrBadCommand, line)
		}
		return Gesture{Kind: GestureAbility, InstanceID: id, Ability: idx}, nil
	default:
		return Gesture{}, fmt.Errorf("%w: unknown verb %q", ErrBadCommand, verb)
	}
}

func arity(line string, rest []string, want int) error {
	if len(rest) != want {
		return fmt.Errorf("%w: %q takes %d arguments after the id", ErrBadCommand, line, want)
	}
	return nil
}
