// Package hardware connects a robot session to a physical controller, or
// to an emulated one, over a link. The Controller is the robot side; the
// Emulator answers the same protocol from a reference map.
package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/protocol"
	"github.com/banshee-data/gridbot/internal/robot"
)

// Link is the part of link.Client the controller needs.
type Link interface {
	Send(ctx context.Context, line string) error
	Next(ctx context.Context, accept func(string) bool) (string, error)
	Drain() int
}

// DefaultRequestTimeout bounds the wait for a sensor reply.
const DefaultRequestTimeout = 3 * time.Second

// Controller drives the robot controller. It implements robot.Actuator,
// robot.ReadingSource and display.Publisher.
//
// The controller answers every motion command with a sensor line, so a
// Readings call that follows an Actuate waits for that reply instead of
// asking again.
type Controller struct {
	link    Link
	timeout time.Duration

	mu      sync.Mutex
	pending bool
}

// NewController wraps l. A zero timeout uses DefaultRequestTimeout.
func NewController(l Link, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Controller{link: l, timeout: timeout}
}

// Actuate sends cmd to the controller.
func (c *Controller) Actuate(ctx context.Context, cmd robot.Command, steps int) error {
	token := protocol.EncodeCommand(cmd, steps)
	if token == "" {
		return fmt.Errorf("%w: %v", protocol.ErrBadToken, cmd)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.link.Drain(); n > 0 {
		monitoring.Logf("hardware: discarded %d stale lines before %s", n, token)
	}
	if err := c.link.Send(ctx, protocol.ControllerPrefix+token); err != nil {
		c.pending = false
		return err
	}
	c.pending = true
	return nil
}

// Readings returns the controller's next sensor line, requesting one if no
// motion reply is outstanding. Values are passed through each sensor's
// range band.
func (c *Controller) Readings(ctx context.Context, sensors []robot.Sensor) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	if !c.pending {
		c.link.Drain()
		if err := c.link.Send(ctx, protocol.ControllerPrefix+protocol.EncodeCommand(robot.SendSensors, 1)); err != nil {
			return nil, err
		}
	}
	c.pending = false

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	line, err := c.link.Next(ctx, protocol.IsSensorLine)
	if err != nil {
		return nil, fmt.Errorf("waiting for sensor reply: %w", err)
	}
	monitoring.LinkRoundTrip.Observe(time.Since(start).Seconds())

	raw, err := protocol.ParseSensorLine(line)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(sensors))
	for _, s := range sensors {
		if d, ok := raw[s.ID()]; ok {
			out[s.ID()] = s.Accept(d)
		}
	}
	return out, nil
}

// Publish forwards a status snapshot to the display over the same link.
func (c *Controller) Publish(ctx context.Context, msg protocol.StatusMessage) error {
	line, err := protocol.EncodeStatus(msg)
	if err != nil {
		return err
	}
	return c.link.Send(ctx, line)
}
