package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
)

// Port is the minimal byte stream a Mux needs. Serial ports, TCP
// connections and test doubles all satisfy it.
type Port interface {
	io.ReadWriter
	io.Closer
}

// Opener establishes a fresh Port. The Client calls it on first use and
// again after every link failure.
type Opener func(ctx context.Context) (Port, error)

// OpenSerial returns an Opener for the serial device at path.
func OpenSerial(path string, opts PortOptions) Opener {
	return func(ctx context.Context) (Port, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mode, err := opts.SerialMode()
		if err != nil {
			return nil, err
		}
		port, err := serial.Open(path, mode)
		if err != nil {
			return nil, fmt.Errorf("open serial port %s at %s: %w", path, opts, err)
		}
		return port, nil
	}
}

// DialTCP returns an Opener that connects to a controller socket.
func DialTCP(address string, timeout time.Duration) Opener {
	return func(ctx context.Context) (Port, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", address, err)
		}
		return conn, nil
	}
}
