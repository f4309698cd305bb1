package robot

import (
	"context"
	"fmt"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/monitoring"
)

// RangeBand is an inclusive [Min, Max] detection range in cells.
type RangeBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SensorSpec places a sensor relative to the body centre of a robot that
// is heading Up.
type SensorSpec struct {
	ID     string
	Range  RangeBand
	Offset arena.Point
	Facing arena.Direction
}

// DefaultSensors is the standard layout: three short-range sensors across
// the front, two short-range sensors on the right and one long-range
// sensor on the front-left corner looking left.
func DefaultSensors(short, long RangeBand) []SensorSpec {
	return []SensorSpec{
		{ID: "F1", Range: short, Offset: arena.Pt(1, -1), Facing: arena.Up},
		{ID: "F2", Range: short, Offset: arena.Pt(1, 0), Facing: arena.Up},
		{ID: "F3", Range: short, Offset: arena.Pt(1, 1), Facing: arena.Up},
		{ID: "R1", Range: short, Offset: arena.Pt(-1, 1), Facing: arena.Right},
		{ID: "R2", Range: short, Offset: arena.Pt(1, 1), Facing: arena.Right},
		{ID: "L1", Range: long, Offset: arena.Pt(1, -1), Facing: arena.Left},
	}
}

// Actuator carries a validated command to physical hardware. A nil
// Actuator means the robot is simulated.
type Actuator interface {
	Actuate(ctx context.Context, cmd Command, steps int) error
}

// Config describes a robot at construction time.
type Config struct {
	Start   arena.Point
	Heading arena.Direction
	Sensors []SensorSpec
	Mode    Mode

	// Actuator receives every accepted move and turn before the body
	// state changes. Leave nil for simulation.
	Actuator Actuator

	// RetractPhantoms clears previously marked obstacles that a ray with
	// a confirmed detection further out has now passed through.
	RetractPhantoms bool
}

// Robot is the body state: centre position, heading and the rigidly
// attached sensors.
type Robot struct {
	pos      arena.Point
	heading  arena.Direction
	mode     Mode
	sensors  []Sensor
	byID     map[string]int
	actuator Actuator
	retract  bool
	last     Command
	moved    bool
}

// New builds a robot from cfg. Sensors are laid out for an Up heading and
// then rotated with the body to cfg.Heading.
func New(cfg Config) (*Robot, error) {
	if len(cfg.Sensors) == 0 {
		return nil, fmt.Errorf("robot needs at least one sensor")
	}
	r := &Robot{
		pos:      cfg.Start,
		heading:  arena.Up,
		mode:     cfg.Mode,
		byID:     make(map[string]int, len(cfg.Sensors)),
		actuator: cfg.Actuator,
		retract:  cfg.RetractPhantoms,
	}
	for _, spec := range cfg.Sensors {
		if _, dup := r.byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate sensor id %q", spec.ID)
		}
		s, err := NewSensor(spec.ID, spec.Range.Min, spec.Range.Max, cfg.Start.Add(spec.Offset), spec.Facing)
		if err != nil {
			return nil, err
		}
		r.byID[spec.ID] = len(r.sensors)
		r.sensors = append(r.sensors, s)
	}
	switch cfg.Heading {
	case arena.Up:
	case arena.Left:
		r.rotate(1)
	case arena.Right:
		r.rotate(-1)
	case arena.Down:
		r.rotate(-2)
	default:
		return nil, fmt.Errorf("invalid heading %v", cfg.Heading)
	}
	return r, nil
}

func (r *Robot) Pos() arena.Point         { return r.pos }
func (r *Robot) Heading() arena.Direction { return r.heading }
func (r *Robot) Mode() Mode               { return r.mode }

// SetMode switches between exploration and route following.
func (r *Robot) SetMode(m Mode) { r.mode = m }

// LastCommand returns the most recent accepted command.
func (r *Robot) LastCommand() (Command, bool) { return r.last, r.moved }

// Sensors returns copies of the attached sensors in declaration order.
func (r *Robot) Sensors() []Sensor {
	out := make([]Sensor, len(r.sensors))
	copy(out, r.sensors)
	return out
}

// Sensor looks up one attached sensor by id.
func (r *Robot) Sensor(id string) (Sensor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Sensor{}, false
	}
	return r.sensors[i], true
}

func (r *Robot) String() string {
	return fmt.Sprintf("robot at %v facing %v", r.pos, r.heading)
}

// rotate turns the heading and every sensor by quarterTurns (positive is
// left) about the unchanged centre.
func (r *Robot) rotate(quarterTurns int) {
	for i := range r.sensors {
		r.sensors[i].Rotate(r.pos, quarterTurns)
	}
	for ; quarterTurns > 0; quarterTurns-- {
		r.heading = r.heading.AntiClockwise()
	}
	for ; quarterTurns < 0; quarterTurns++ {
		r.heading = r.heading.Clockwise()
	}
}

// Turn rotates the body a quarter turn in place. Commands other than
// TurnLeft and TurnRight are rejected and reported as not executed. An
// actuator failure leaves the robot unchanged and is returned.
func (r *Robot) Turn(ctx context.Context, cmd Command) (bool, error) {
	if !cmd.IsTurn() {
		monitoring.Logf("robot: invalid turn command %v, no movement executed", cmd)
		return false, nil
	}
	if err := r.actuate(ctx, cmd, 1); err != nil {
		return false, err
	}
	if cmd == TurnLeft {
		r.rotate(1)
	} else {
		r.rotate(-1)
	}
	r.last, r.moved = cmd, true
	return true, nil
}

// Move translates the body steps cells forward or backward along its
// heading. Every centre swept by the move must be traversable on grid;
// otherwise the move is rejected, nothing changes and false is returned.
// A traversable destination is not enough: a multi-step move may not pass
// over an obstacle, virtual wall or unexplored cell on the way.
// In Exploring mode the body footprint is marked at each swept centre.
func (r *Robot) Move(ctx context.Context, grid *arena.Grid, cmd Command, steps int) (bool, error) {
	if !cmd.IsMove() || steps < 1 {
		monitoring.Logf("robot: invalid move %v x%d, no movement executed", cmd, steps)
		return false, nil
	}
	delta := r.heading.Delta()
	if cmd == Backward {
		delta = delta.Scale(-1)
	}
	for i := 1; i <= steps; i++ {
		p := r.pos.Add(delta.Scale(i))
		if !grid.IsTraversable(p.Row, p.Col) {
			monitoring.Logf("robot: %v x%d from %v blocked at %v, no movement executed", cmd, steps, r.pos, p)
			return false, nil
		}
	}
	if err := r.actuate(ctx, cmd, steps); err != nil {
		return false, err
	}

	dest := r.pos.Add(delta.Scale(steps))
	r.setPosition(dest)
	if r.mode == Exploring {
		for i := 0; i < steps; i++ {
			p := dest.Sub(delta.Scale(i))
			grid.MarkFootprint(p.Row, p.Col)
		}
	}
	r.last, r.moved = cmd, true
	return true, nil
}

func (r *Robot) actuate(ctx context.Context, cmd Command, steps int) error {
	if r.actuator == nil {
		return nil
	}
	if err := r.actuator.Actuate(ctx, cmd, steps); err != nil {
		return fmt.Errorf("actuate %v x%d: %w", cmd, steps, err)
	}
	return nil
}

// setPosition moves the centre to p, carrying the sensors along.
func (r *Robot) setPosition(p arena.Point) {
	delta := p.Sub(r.pos)
	r.pos = p
	for i := range r.sensors {
		r.sensors[i].Translate(delta)
	}
}

// SetStartPosition places the robot at start without changing heading and
// resets the working grid's exploration and coverage. The 3x3 start zone
// is marked explored and moved through.
func (r *Robot) SetStartPosition(start arena.Point, grid *arena.Grid) error {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if !grid.IsInBounds(start.Row+dr, start.Col+dc) {
				return fmt.Errorf("start %v: body footprint leaves the %dx%d grid", start, grid.Rows(), grid.Cols())
			}
		}
	}
	r.setPosition(start)
	grid.SetAllExplored(false)
	grid.SetAllMoveThru(false)
	for row := start.Row - 1; row <= start.Row+1; row++ {
		for col := start.Col - 1; col <= start.Col+1; col++ {
			grid.MarkExplored(row, col)
		}
	}
	grid.MarkFootprint(start.Row, start.Col)
	return nil
}

// TurnsToFace returns the turn commands that bring the heading to dir.
func (r *Robot) TurnsToFace(dir arena.Direction) []Command {
	switch dir {
	case r.heading:
		return nil
	case r.heading.AntiClockwise():
		return []Command{TurnLeft}
	case r.heading.Clockwise():
		return []Command{TurnRight}
	default:
		return []Command{TurnRight, TurnRight}
	}
}
