package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/monitoring"
)

// ErrNoReadings means a sense pass received nothing usable for any sensor.
var ErrNoReadings = errors.New("no usable sensor readings")

// ReadingSource supplies one detected distance per sensor id. Distances
// may be raw; they are filtered through each sensor's range band before
// use. Missing ids are treated as unavailable.
type ReadingSource interface {
	Readings(ctx context.Context, sensors []Sensor) (map[string]int, error)
}

// SimulatedSource ray-casts every sensor against a ground-truth grid.
type SimulatedSource struct {
	Reference *arena.Grid
}

// Readings implements ReadingSource.
func (s SimulatedSource) Readings(ctx context.Context, sensors []Sensor) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(sensors))
	for _, sn := range sensors {
		out[sn.ID()] = sn.Detect(s.Reference)
	}
	return out, nil
}

// SenseResult summarises one sense pass.
type SenseResult struct {
	// Readings holds the filtered distance used for each sensor.
	Readings map[string]int
	// Skipped is set when the pass was dropped without touching the grid.
	Skipped bool
	Reason  error

	NewlyExplored int
	Obstacles     []arena.Point
	Retracted     []arena.Point
}

// Sense pulls one reading per sensor from src and folds it into grid. For
// each sensor the cells from MinRange out to MaxRange are marked explored;
// the cell at the detected distance becomes an obstacle unless the body
// has already moved through it, and the walk stops there. A walk that
// leaves the grid simply ends.
//
// A source error, or a response that names none of the attached sensors,
// skips the whole pass and leaves grid unchanged.
func (r *Robot) Sense(ctx context.Context, grid *arena.Grid, src ReadingSource) SenseResult {
	raw, err := src.Readings(ctx, r.Sensors())
	if err != nil {
		monitoring.Logf("robot: sensor readings unavailable, map not updated: %v", err)
		return SenseResult{Skipped: true, Reason: err}
	}

	res := SenseResult{Readings: make(map[string]int, len(r.sensors))}
	for _, s := range r.sensors {
		if d, ok := raw[s.ID()]; ok {
			res.Readings[s.ID()] = s.Accept(d)
		}
	}
	if len(res.Readings) == 0 {
		err := fmt.Errorf("%w: %d values, none for attached sensors", ErrNoReadings, len(raw))
		monitoring.Logf("robot: %v, map not updated", err)
		return SenseResult{Skipped: true, Reason: err}
	}

	for _, s := range r.sensors {
		d, ok := res.Readings[s.ID()]
		if !ok {
			continue
		}
		r.walk(grid, s, d, &res)
	}
	return res
}

func (r *Robot) walk(grid *arena.Grid, s Sensor, d int, res *SenseResult) {
	delta := s.Facing().Delta()
	for j := s.MinRange(); j <= s.MaxRange(); j++ {
		p := s.Pos().Add(delta.Scale(j))
		if !grid.IsInBounds(p.Row, p.Col) {
			return
		}
		c := grid.At(p)
		if !c.Explored {
			grid.MarkExplored(p.Row, p.Col)
			res.NewlyExplored++
		}
		if j == d && !c.MoveThru {
			if !c.Obstacle {
				grid.MarkObstacle(p.Row, p.Col, true)
				res.Obstacles = append(res.Obstacles, p)
			}
			return
		}
		if r.retract && d != NoReading && j < d && grid.ClearObstacle(p.Row, p.Col) {
			res.Retracted = append(res.Retracted, p)
		}
	}
}
