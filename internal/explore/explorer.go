package explore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/robot"
	"github.com/banshee-data/gridbot/internal/timeutil"
)

// StopReason says why a run ended.
type StopReason string

const (
	StopDone      StopReason = "done"
	StopMaxTicks  StopReason = "max_ticks"
	StopCoverage  StopReason = "coverage_limit"
	StopStalled   StopReason = "stalled"
	StopCancelled StopReason = "cancelled"
	StopFailed    StopReason = "failed"
)

// visitPenalty is added to a neighbour's distance score per earlier visit.
const visitPenalty = 1.0

// Options bound an autonomous run. Zero values disable a limit.
type Options struct {
	MaxTicks int
	// CoverageLimit stops the run once this percentage of the grid has
	// been explored. 100 or more lets the coverage phase finish.
	CoverageLimit float64
	// StallLimit stops the run after this many consecutive ticks that
	// neither explore nor cover a new cell.
	StallLimit int
	Clock      timeutil.Clock
}

// CoveragePoint is one sample of a run's progress, in percent.
type CoveragePoint struct {
	Tick     int     `json:"tick"`
	Explored float64 `json:"explored"`
	Covered  float64 `json:"covered"`
}

// RunSummary describes a finished run.
type RunSummary struct {
	SessionID string          `json:"session_id"`
	Reason    StopReason      `json:"reason"`
	Ticks     int             `json:"ticks"`
	Moves     int             `json:"moves"`
	Turns     int             `json:"turns"`
	Rejected  int             `json:"rejected"`
	Skipped   int             `json:"skipped_senses"`
	Obstacles int             `json:"obstacles"`
	Explored  float64         `json:"explored"`
	Covered   float64         `json:"covered"`
	Started   time.Time       `json:"started"`
	Elapsed   time.Duration   `json:"elapsed"`
	Series    []CoveragePoint `json:"series"`
}

// Explorer runs the plan, step, sense loop over a Session.
type Explorer struct {
	session *Session
	planner Planner
	opts    Options
	visits  map[arena.Point]int
}

// NewExplorer returns an explorer for s.
func NewExplorer(s *Session, opts Options) *Explorer {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Explorer{session: s, opts: opts, visits: make(map[arena.Point]int)}
}

// Run explores until the planner is done, a limit is reached or ctx is
// cancelled. Cancellation is a normal stop and returns a nil error; a
// hardware failure ends the run with StopFailed and the error.
func (e *Explorer) Run(ctx context.Context) (RunSummary, error) {
	sum := RunSummary{SessionID: e.session.ID(), Started: e.opts.Clock.Now()}

	e.account(&sum, robot.SendSensors, StepResult{Executed: true, Sense: e.session.SensorSnapshot(ctx)})
	progress := e.progress()
	stalled := 0

	finish := func(reason StopReason) (RunSummary, error) {
		sum.Reason = reason
		sum.Elapsed = e.opts.Clock.Since(sum.Started)
		monitoring.Logf("explore %s: stopped (%s) after %d ticks, %.1f%% explored, %.1f%% covered",
			sum.SessionID, reason, sum.Ticks, sum.Explored, sum.Covered)
		return sum, nil
	}

	for {
		if ctx.Err() != nil {
			return finish(StopCancelled)
		}
		if e.opts.MaxTicks > 0 && sum.Ticks >= e.opts.MaxTicks {
			return finish(StopMaxTicks)
		}
		if e.opts.CoverageLimit > 0 && e.opts.CoverageLimit < 100 && sum.Explored >= e.opts.CoverageLimit {
			return finish(StopCoverage)
		}

		var (
			target Target
			ok     bool
			cmd    robot.Command
		)
		e.session.view(func(r *robot.Robot, g *arena.Grid) {
			target, ok = e.planner.NextTarget(g, r.Pos())
			if ok {
				cmd = e.nextCommand(r, g, target)
			}
		})
		if !ok {
			return finish(StopDone)
		}

		res, err := e.session.Tick(ctx, cmd, 1)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return finish(StopCancelled)
			}
			sum.Reason = StopFailed
			sum.Elapsed = e.opts.Clock.Since(sum.Started)
			return sum, fmt.Errorf("tick %d: %w", sum.Ticks, err)
		}
		e.account(&sum, cmd, res)

		if p := e.progress(); p > progress {
			progress, stalled = p, 0
		} else {
			stalled++
		}
		if e.opts.StallLimit > 0 && stalled >= e.opts.StallLimit {
			return finish(StopStalled)
		}
	}
}

// nextCommand steers one cell toward target. Among the traversable
// neighbours the one closest to the target wins, with each earlier visit
// counting as extra distance. With no traversable neighbour the robot
// turns in place to sense a new direction.
func (e *Explorer) nextCommand(r *robot.Robot, g *arena.Grid, target Target) robot.Command {
	pos := r.Pos()
	var (
		best  arena.Point
		score float64
		found bool
	)
	for _, n := range g.Neighbors4(pos) {
		s := n.Pos.Distance(target.Cell.Pos) + visitPenalty*float64(e.visits[n.Pos])
		if !found || s < score {
			best, score, found = n.Pos, s, true
		}
	}
	if !found {
		return robot.TurnLeft
	}

	turns := r.TurnsToFace(arena.DirectionBetween(pos, best))
	switch {
	case len(turns) == 0:
		return robot.Forward
	case len(turns) == 2 && target.Phase == PhaseCoverage:
		// Sensing is finished, so reversing is as good as turning round.
		return robot.Backward
	default:
		return turns[0]
	}
}

func (e *Explorer) account(sum *RunSummary, cmd robot.Command, res StepResult) {
	switch {
	case cmd == robot.SendSensors:
	case !res.Executed:
		sum.Rejected++
	case cmd.IsTurn():
		sum.Turns++
	default:
		sum.Moves++
	}
	if res.Sense.Skipped {
		sum.Skipped++
	}
	sum.Obstacles += len(res.Sense.Obstacles) - len(res.Sense.Retracted)

	e.session.view(func(r *robot.Robot, g *arena.Grid) {
		e.visits[r.Pos()]++
		sum.Ticks = e.session.tick
		sum.Explored = g.ExplorationRatio()
		sum.Covered = coverageRatio(g)
	})
	sum.Series = append(sum.Series, CoveragePoint{Tick: sum.Ticks, Explored: sum.Explored, Covered: sum.Covered})
}

// progress is the number of explored plus moved-through cells.
func (e *Explorer) progress() int {
	var n int
	e.session.view(func(_ *robot.Robot, g *arena.Grid) {
		n = g.CountExplored() + g.CountMoveThru()
	})
	return n
}

func coverageRatio(g *arena.Grid) float64 {
	return float64(g.CountMoveThru()) / float64(g.Size()) * 100
}
