package robot

import "fmt"

// Command is a discrete kinematic instruction.
type Command int

const (
	Forward Command = iota
	Backward
	TurnLeft
	TurnRight
	SendSensors
)

var commandNames = [...]string{"forward", "backward", "turn_left", "turn_right", "send_sensors"}

func (c Command) String() string {
	if c < Forward || c > SendSensors {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

// IsTurn reports whether c rotates the body in place.
func (c Command) IsTurn() bool {
	return c == TurnLeft || c == TurnRight
}

// IsMove reports whether c translates the body.
func (c Command) IsMove() bool {
	return c == Forward || c == Backward
}

// Mode selects how moves are recorded on the working grid.
type Mode int

const (
	// Exploring marks the swept body footprint on every move.
	Exploring Mode = iota
	// RouteFollowing replays a computed route and leaves coverage untouched.
	RouteFollowing
)

func (m Mode) String() string {
	switch m {
	case Exploring:
		return "exploring"
	case RouteFollowing:
		return "route_following"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
