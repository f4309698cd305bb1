package link

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// The controller firmware talks 115200 8N1. Command tokens (W/S/A/D/U) go
// out and sensor reply lines come back at this framing unless the run
// config overrides it.
const (
	DefaultBaudRate = 115200
	DefaultDataBits = 8
	DefaultStopBits = 1
	DefaultParity   = "N"
)

// PortOptions frames the UART to the robot controller. Zero fields take
// the firmware defaults above.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize fills firmware defaults and rejects framings a UART cannot carry.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.DataBits == 0 {
		opts.DataBits = DefaultDataBits
	}
	if opts.StopBits == 0 {
		opts.StopBits = DefaultStopBits
	}

	// Sensor replies are ASCII, so anything under 7 bits would mangle them.
	if opts.DataBits < 7 || opts.DataBits > 8 {
		return opts, fmt.Errorf("controller link data bits %d: want 7 or 8", opts.DataBits)
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("controller link stop bits %d: want 1 or 2", opts.StopBits)
	}

	switch p := strings.ToUpper(strings.TrimSpace(opts.Parity)); p {
	case "", "N", "NONE":
		opts.Parity = DefaultParity
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("controller link parity %q: want N, E or O", opts.Parity)
	}
	return opts, nil
}

// String renders the framing as "115200 8N1". Invalid options print as
// given.
func (o PortOptions) String() string {
	n, err := o.Normalize()
	if err != nil {
		n = o
	}
	return fmt.Sprintf("%d %d%s%d", n.BaudRate, n.DataBits, n.Parity, n.StopBits)
}

// SerialMode maps the framing onto go.bug.st/serial.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{BaudRate: opts.BaudRate, DataBits: opts.DataBits}
	switch opts.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}
