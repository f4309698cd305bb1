package robot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/gridbot/internal/arena"
)

// NoReading is the sentinel distance for "no reliable detection".
const NoReading = -1

// Sensor is a single range detector. Its position is an absolute grid
// coordinate that follows the body through every move and turn.
type Sensor struct {
	id       string
	minRange int
	maxRange int
	pos      arena.Point
	facing   arena.Direction
}

// NewSensor validates the range band and returns a sensor at pos.
func NewSensor(id string, minRange, maxRange int, pos arena.Point, facing arena.Direction) (Sensor, error) {
	if id == "" {
		return Sensor{}, fmt.Errorf("sensor id must not be empty")
	}
	if minRange < 1 || maxRange < minRange {
		return Sensor{}, fmt.Errorf("sensor %s: invalid range [%d,%d]", id, minRange, maxRange)
	}
	return Sensor{id: id, minRange: minRange, maxRange: maxRange, pos: pos, facing: facing}, nil
}

func (s Sensor) ID() string              { return s.id }
func (s Sensor) MinRange() int           { return s.minRange }
func (s Sensor) MaxRange() int           { return s.maxRange }
func (s Sensor) Pos() arena.Point        { return s.pos }
func (s Sensor) Facing() arena.Direction { return s.facing }

func (s Sensor) String() string {
	return fmt.Sprintf("%s@%v facing %v [%d,%d]", s.id, s.pos, s.facing, s.minRange, s.maxRange)
}

// Rotate turns the sensor rigidly about center by quarterTurns quarter
// turns. Positive values turn left (anti-clockwise), negative values turn
// right. Positions are rounded back onto the grid after every quarter turn
// so four turns in one direction are exact.
func (s *Sensor) Rotate(center arena.Point, quarterTurns int) {
	step, alpha := 1, math.Pi/2
	if quarterTurns < 0 {
		step, alpha = -1, -math.Pi/2
	}
	rot := r2.NewRotation(alpha, center.Vec())
	for i := 0; i != quarterTurns; i += step {
		v := rot.Rotate(s.pos.Vec())
		s.pos = arena.Pt(int(math.Round(v.Y)), int(math.Round(v.X)))
		if step > 0 {
			s.facing = s.facing.AntiClockwise()
		} else {
			s.facing = s.facing.Clockwise()
		}
	}
}

// Translate shifts the sensor by the body displacement delta.
func (s *Sensor) Translate(delta arena.Point) {
	s.pos = s.pos.Add(delta)
}

// CastRay walks outward from the sensor along its facing for up to
// maxRange cells and returns the first step index that holds an obstacle
// in ref. Walking off the grid ends the cast with NoReading.
func (s Sensor) CastRay(ref *arena.Grid) int {
	delta := s.facing.Delta()
	for step := 1; step <= s.maxRange; step++ {
		p := s.pos.Add(delta.Scale(step))
		if !ref.IsInBounds(p.Row, p.Col) {
			return NoReading
		}
		if ref.At(p).Obstacle {
			return step
		}
	}
	return NoReading
}

// Accept returns raw when it lies inside the sensor's [min,max] band and
// NoReading otherwise. Out-of-band values are never clamped.
func (s Sensor) Accept(raw int) int {
	if raw < s.minRange || raw > s.maxRange {
		return NoReading
	}
	return raw
}

// Detect is the simulated reading: a ray cast against ref filtered by
// the range band.
func (s Sensor) Detect(ref *arena.Grid) int {
	return s.Accept(s.CastRay(ref))
}
