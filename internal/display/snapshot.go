// Package display derives the status snapshot the companion display
// renders and delivers it to subscribers.
package display

import (
	"context"
	"errors"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/protocol"
	"github.com/banshee-data/gridbot/internal/robot"
)

// Snapshot builds the status message for the robot and working grid.
// Coordinates are converted to the display's 1-indexed x (column) and
// y (row).
func Snapshot(session string, tick int, r *robot.Robot, g *arena.Grid) protocol.StatusMessage {
	obstacle := arena.ObstacleDescriptor(g)
	pos := r.Pos()
	return protocol.StatusMessage{
		Robot: []protocol.RobotPose{{
			X:         pos.Col + 1,
			Y:         pos.Row + 1,
			Direction: r.Heading().String(),
		}},
		Map: []protocol.MapState{{
			Explored: arena.ExploredDescriptor(g),
			Obstacle: obstacle,
			Length:   len(obstacle) * 4,
		}},
		Session:  session,
		Tick:     tick,
		Coverage: g.ExplorationRatio(),
	}
}

// Publisher receives every snapshot after a sense pass.
type Publisher interface {
	Publish(ctx context.Context, msg protocol.StatusMessage) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, msg protocol.StatusMessage) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, msg protocol.StatusMessage) error {
	return f(ctx, msg)
}

// Fanout publishes to every member and joins their errors.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, msg protocol.StatusMessage) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
