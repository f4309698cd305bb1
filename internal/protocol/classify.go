package protocol

import "strings"

// LineKind is the coarse type of a received line.
type LineKind int

const (
	LineUnknown LineKind = iota
	LineSensor
	LineStatus
	LineCommands
)

func (k LineKind) String() string {
	switch k {
	case LineSensor:
		return "sensor"
	case LineStatus:
		return "status"
	case LineCommands:
		return "commands"
	default:
		return "unknown"
	}
}

// Classify inspects a line and returns its kind. Display status objects
// are recognised by prefix and opening brace, sensor lines by having at
// least one id:value entry, and command runs by the controller prefix.
func Classify(line string) LineKind {
	line = strings.TrimSpace(line)
	prefix, body := SplitPrefix(line)
	switch {
	case line == "":
		return LineUnknown
	case prefix == DisplayPrefix && strings.HasPrefix(body, "{"):
		return LineStatus
	case IsSensorLine(line):
		return LineSensor
	case prefix == ControllerPrefix:
		return LineCommands
	default:
		return LineUnknown
	}
}
