package arena

import "math"

// Neighbors4 returns the up, down, left and right neighbours of p that the
// robot centre could move onto, in that order.
func (g *Grid) Neighbors4(p Point) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range [...]Direction{Up, Down, Left, Right} {
		n := p.Add(d.Delta())
		if g.IsTraversable(n.Row, n.Col) {
			out = append(out, g.cells[n.Row*g.cols+n.Col])
		}
	}
	return out
}

// NearestMatching scans the grid row-major and returns the cell accepted by
// keep that is closest to from. Ties go to the cell scanned first.
func (g *Grid) NearestMatching(from Point, keep func(Cell) bool) (Cell, bool) {
	best := math.Inf(1)
	var nearest Cell
	found := false
	for _, c := range g.cells {
		if !keep(c) {
			continue
		}
		if d := from.Distance(c.Pos); d < best {
			best = d
			nearest = c
			found = true
		}
	}
	return nearest, found
}

// NearestUnexplored returns the unexplored cell closest to from, or false
// once the whole grid has been sensed.
func (g *Grid) NearestUnexplored(from Point) (Cell, bool) {
	return g.NearestMatching(from, func(c Cell) bool { return !c.Explored })
}

// ClearForRobot reports whether the full 3x3 footprint centred on
// (row, col) is on the grid, explored and free of obstacles.
func (g *Grid) ClearForRobot(row, col int) bool {
	for r := row - 1; r <= row+1; r++ {
		for c := col - 1; c <= col+1; c++ {
			if !g.IsInBounds(r, c) {
				return false
			}
			cell := g.cells[r*g.cols+c]
			if !cell.Explored || cell.Obstacle {
				return false
			}
		}
	}
	return true
}

// NotFullyCovered reports whether any in-bounds cell of the 3x3
// neighbourhood of (row, col) has not yet been moved through.
func (g *Grid) NotFullyCovered(row, col int) bool {
	for r := row - 1; r <= row+1; r++ {
		for c := col - 1; c <= col+1; c++ {
			if g.IsInBounds(r, c) && !g.cells[r*g.cols+c].MoveThru {
				return true
			}
		}
	}
	return false
}

// NearestReachableFrontier returns the traversable, obstacle-clear cell
// whose neighbourhood still has uncovered cells, closest to from. The
// robot's own cell is never returned.
func (g *Grid) NearestReachableFrontier(from, robot Point) (Cell, bool) {
	return g.NearestMatching(from, func(c Cell) bool {
		if c.Pos == robot {
			return false
		}
		r, col := c.Pos.Row, c.Pos.Col
		return g.IsTraversable(r, col) && g.ClearForRobot(r, col) && g.NotFullyCovered(r, col)
	})
}

// CountExplored returns the number of explored cells.
func (g *Grid) CountExplored() int {
	n := 0
	for _, c := range g.cells {
		if c.Explored {
			n++
		}
	}
	return n
}

// CountMoveThru returns the number of cells the body has covered.
func (g *Grid) CountMoveThru() int {
	n := 0
	for _, c := range g.cells {
		if c.MoveThru {
			n++
		}
	}
	return n
}

// ExplorationRatio is the explored share of the grid as a percentage in
// [0, 100]. It is recomputed on every call.
func (g *Grid) ExplorationRatio() float64 {
	return float64(g.CountExplored()) / float64(len(g.cells)) * 100
}
