// Package explore drives a robot around its working grid: the planner
// picks the next target cell, a Session applies commands and sense passes,
// and the Explorer loops the two until the arena is covered.
package explore

import (
	"fmt"

	"github.com/banshee-data/gridbot/internal/arena"
)

// Phase is the stage of exploration a target belongs to.
type Phase int

const (
	// PhaseFrontier seeks cells no sensor has reached yet.
	PhaseFrontier Phase = iota
	// PhaseCoverage drives the body over cells that were sensed but never
	// physically swept.
	PhaseCoverage
	// PhaseDone means neither phase has anything left.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseFrontier:
		return "frontier"
	case PhaseCoverage:
		return "coverage"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Target is a planner decision.
type Target struct {
	Cell  arena.Cell
	Phase Phase
}

// Planner selects exploration targets. It only reads the grid; the one
// piece of state it keeps is the last frontier target, used to anchor the
// coverage phase near where sensing finished.
type Planner struct {
	hint    arena.Point
	hasHint bool
}

// NextTarget returns the next cell to head for from pos, or a PhaseDone
// target with ok false once exploration is complete.
//
// Frontier targets are unexplored cells that are not virtual walls, so an
// obstacle's clearance ring is never chosen. Once none remain, the
// nearest reachable cell whose neighbourhood is not fully covered is
// chosen, measured from the last frontier target.
func (p *Planner) NextTarget(g *arena.Grid, pos arena.Point) (Target, bool) {
	if c, ok := g.NearestMatching(pos, func(c arena.Cell) bool {
		return !c.Explored && !c.VirtualWall
	}); ok {
		p.hint, p.hasHint = c.Pos, true
		return Target{Cell: c, Phase: PhaseFrontier}, true
	}

	anchor := pos
	if p.hasHint {
		anchor = p.hint
	}
	if c, ok := g.NearestReachableFrontier(anchor, pos); ok {
		return Target{Cell: c, Phase: PhaseCoverage}, true
	}
	return Target{Phase: PhaseDone}, false
}

// Hint returns the anchor used for the coverage phase, if any frontier
// target has been chosen yet.
func (p *Planner) Hint() (arena.Point, bool) {
	return p.hint, p.hasHint
}

// Reset forgets the coverage anchor.
func (p *Planner) Reset() {
	p.hint, p.hasHint = arena.Point{}, false
}
