package explore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/display"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/protocol"
	"github.com/banshee-data/gridbot/internal/robot"
	"github.com/banshee-data/gridbot/internal/timeutil"
)

// SessionConfig wires a Session to its collaborators.
type SessionConfig struct {
	Robot *robot.Robot
	Grid  *arena.Grid
	// Source supplies sensor distances: a robot.SimulatedSource over a
	// reference grid, or a hardware controller.
	Source robot.ReadingSource
	// Publisher receives a snapshot after every sense pass. Optional.
	Publisher display.Publisher
	// Pacer throttles simulated motion. The zero value does not wait.
	Pacer timeutil.Pacer
	// ID names the session in snapshots and reports. Generated when empty.
	ID string
}

// Session owns one robot and its working grid. All operations are
// serialised, so a driver and the autonomous explorer may share it.
type Session struct {
	mu    sync.Mutex
	id    string
	robot *robot.Robot
	grid  *arena.Grid
	src   robot.ReadingSource
	pub   display.Publisher
	pacer timeutil.Pacer
	tick  int
}

// NewSession validates cfg and returns a ready session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Robot == nil || cfg.Grid == nil || cfg.Source == nil {
		return nil, fmt.Errorf("session needs a robot, a grid and a reading source")
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:    id,
		robot: cfg.Robot,
		grid:  cfg.Grid,
		src:   cfg.Source,
		pub:   cfg.Publisher,
		pacer: cfg.Pacer,
	}, nil
}

func (s *Session) ID() string { return s.id }

// Ticks returns the number of sense passes run so far.
func (s *Session) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Pose returns the robot's position and heading.
func (s *Session) Pose() (arena.Point, arena.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.robot.Pos(), s.robot.Heading()
}

// Grid returns a copy of the working grid.
func (s *Session) Grid() *arena.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Clone()
}

// Snapshot returns the current display status without sensing.
func (s *Session) Snapshot() protocol.StatusMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return display.Snapshot(s.id, s.tick, s.robot, s.grid)
}

// view runs fn with the lock held, for callers that need a consistent
// look at the robot and grid together.
func (s *Session) view(fn func(r *robot.Robot, g *arena.Grid)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.robot, s.grid)
}

func (s *Session) TurnLeft(ctx context.Context) (bool, error) {
	return s.command(ctx, robot.TurnLeft, 1)
}

func (s *Session) TurnRight(ctx context.Context) (bool, error) {
	return s.command(ctx, robot.TurnRight, 1)
}

func (s *Session) Forward(ctx context.Context, steps int) (bool, error) {
	return s.command(ctx, robot.Forward, steps)
}

func (s *Session) Backward(ctx context.Context, steps int) (bool, error) {
	return s.command(ctx, robot.Backward, steps)
}

// SensorSnapshot runs one sense pass and publishes the resulting status.
func (s *Session) SensorSnapshot(ctx context.Context) robot.SenseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sense(ctx)
}

// Execute applies a single driver token. Movement tokens report whether
// the body moved; a sensor request reports whether its pass was applied.
func (s *Session) Execute(ctx context.Context, tok protocol.Token) (bool, error) {
	if tok.Cmd == robot.SendSensors {
		res := s.SensorSnapshot(ctx)
		return !res.Skipped, nil
	}
	steps := tok.Steps
	if steps < 1 {
		steps = 1
	}
	return s.command(ctx, tok.Cmd, steps)
}

// StepResult is the outcome of one Tick.
type StepResult struct {
	Executed bool
	Sense    robot.SenseResult
}

// Tick applies cmd and then senses, as one atomic step. A rejected move
// still senses, so a stuck robot keeps refining its map.
func (s *Session) Tick(ctx context.Context, cmd robot.Command, steps int) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.apply(ctx, cmd, steps)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Executed: ok, Sense: s.sense(ctx)}, nil
}

func (s *Session) command(ctx context.Context, cmd robot.Command, steps int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, cmd, steps)
}

// apply executes one kinematic command and holds the caller for the
// paced duration of the motion. The lock must be held.
func (s *Session) apply(ctx context.Context, cmd robot.Command, steps int) (bool, error) {
	var start time.Time
	if s.pacer.Clock != nil {
		start = s.pacer.Clock.Now()
	}

	var (
		ok  bool
		err error
	)
	switch {
	case cmd.IsTurn():
		ok, err = s.robot.Turn(ctx, cmd)
		steps = 1
	case cmd.IsMove():
		ok, err = s.robot.Move(ctx, s.grid, cmd, steps)
	default:
		monitoring.Logf("session %s: %v is not a motion command, no movement executed", s.id, cmd)
		return false, nil
	}

	switch {
	case err != nil:
		monitoring.Moves.WithLabelValues(cmd.String(), "failed").Inc()
		return false, err
	case !ok:
		monitoring.Moves.WithLabelValues(cmd.String(), "rejected").Inc()
		return false, nil
	}
	monitoring.Moves.WithLabelValues(cmd.String(), "executed").Inc()
	s.pacer.Wait(start, steps)
	return true, nil
}

// sense runs one pass, records metrics and publishes. The lock must be
// held.
func (s *Session) sense(ctx context.Context) robot.SenseResult {
	res := s.robot.Sense(ctx, s.grid, s.src)
	s.tick++
	if res.Skipped {
		monitoring.SensePasses.WithLabelValues("skipped").Inc()
		return res
	}

	monitoring.SensePasses.WithLabelValues("applied").Inc()
	monitoring.Obstacles.WithLabelValues("marked").Add(float64(len(res.Obstacles)))
	monitoring.Obstacles.WithLabelValues("retracted").Add(float64(len(res.Retracted)))
	monitoring.ExplorationRatio.Set(s.grid.ExplorationRatio())

	if s.pub != nil {
		msg := display.Snapshot(s.id, s.tick, s.robot, s.grid)
		if err := s.pub.Publish(ctx, msg); err != nil {
			monitoring.Logf("session %s: publish status: %v", s.id, err)
		}
	}
	return res
}
