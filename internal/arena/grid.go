package arena

import (
	"fmt"
)

// MinSize is the smallest usable side length: a border ring around a
// single interior cell.
const MinSize = 3

// Cell is the state of one grid coordinate. Grid hands out copies, so
// writing to a returned Cell never changes the grid.
type Cell struct {
	Pos Point `json:"pos"`

	// Explored is set once any sensor ray has crossed or ended at the cell.
	Explored bool `json:"explored"`
	// Obstacle is set when a ray terminated at the cell. Implies Explored.
	Obstacle bool `json:"obstacle"`
	// VirtualWall marks cells the robot body may not be centred on.
	VirtualWall bool `json:"virtual_wall"`
	// MoveThru is set once the body footprint has physically covered the cell.
	MoveThru bool `json:"move_thru"`
	// OnPath is a transient route overlay, independent of exploration state.
	OnPath bool `json:"on_path"`
}

// Grid is a fixed-size occupancy map. It is owned by one caller at a time
// and is not safe for concurrent mutation.
type Grid struct {
	rows  int
	cols  int
	cells []Cell
}

// New creates a rows x cols grid with an unexplored interior and a
// virtual-wall border ring.
func New(rows, cols int) (*Grid, error) {
	if rows < MinSize || cols < MinSize {
		return nil, fmt.Errorf("grid must be at least %dx%d, got %dx%d", MinSize, MinSize, rows, cols)
	}
	g := &Grid{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}
	g.Reset()
	return g, nil
}

// MustNew is New for dimensions known to be valid, such as test fixtures.
func MustNew(rows, cols int) *Grid {
	g, err := New(rows, cols)
	if err != nil {
		panic(err)
	}
	return g
}

// Reset returns every cell to its initial state.
func (g *Grid) Reset() {
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			g.cells[row*g.cols+col] = Cell{
				Pos:         Point{Row: row, Col: col},
				VirtualWall: g.IsBorder(row, col),
			}
		}
	}
}

// Rows returns the grid height.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the grid width.
func (g *Grid) Cols() int { return g.cols }

// Size returns the total number of cells.
func (g *Grid) Size() int { return len(g.cells) }

// IsInBounds reports whether (row, col) lies on the grid.
func (g *Grid) IsInBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.rows && col < g.cols
}

// IsBorder reports whether (row, col) lies on the outer ring.
func (g *Grid) IsBorder(row, col int) bool {
	return row == 0 || col == 0 || row == g.rows-1 || col == g.cols-1
}

// index panics on out-of-bounds access: callers must check IsInBounds first.
func (g *Grid) index(row, col int) int {
	if !g.IsInBounds(row, col) {
		panic(fmt.Sprintf("arena: cell (%d,%d) outside %dx%d grid", row, col, g.rows, g.cols))
	}
	return row*g.cols + col
}

// Cell returns a copy of the cell at (row, col). It panics when the
// coordinate is out of bounds.
func (g *Grid) Cell(row, col int) Cell {
	return g.cells[g.index(row, col)]
}

// At is Cell addressed by Point.
func (g *Grid) At(p Point) Cell {
	return g.Cell(p.Row, p.Col)
}

// Each visits every cell in row-major order, bottom row first.
func (g *Grid) Each(fn func(Cell)) {
	for _, c := range g.cells {
		fn(c)
	}
}

// IsTraversable reports whether the robot centre may stand on (row, col):
// in bounds, explored, not an obstacle and not a virtual wall.
func (g *Grid) IsTraversable(row, col int) bool {
	if !g.IsInBounds(row, col) {
		return false
	}
	c := g.cells[row*g.cols+col]
	return c.Explored && !c.Obstacle && !c.VirtualWall
}

// IsPassable is IsTraversable without the explored requirement. It answers
// whether a waypoint is reachable in principle.
func (g *Grid) IsPassable(row, col int) bool {
	if !g.IsInBounds(row, col) {
		return false
	}
	c := g.cells[row*g.cols+col]
	return !c.Obstacle && !c.VirtualWall
}

// MarkExplored records that a sensor ray has reached (row, col).
func (g *Grid) MarkExplored(row, col int) {
	g.cells[g.index(row, col)].Explored = true
}

// MarkObstacle sets or clears the obstacle bit at (row, col) and recomputes
// the virtual walls of its 3x3 neighbourhood. Setting an obstacle also
// marks the cell explored.
func (g *Grid) MarkObstacle(row, col int, isObstacle bool) {
	c := &g.cells[g.index(row, col)]
	if isObstacle {
		c.Explored = true
	}
	if c.Obstacle == isObstacle {
		return
	}
	c.Obstacle = isObstacle
	g.refreshVirtualWalls(row, col)
}

// ClearObstacle removes a (possibly phantom) obstacle and retracts any
// virtual wall no longer justified by another obstacle or the border.
// It reports whether an obstacle was actually removed.
func (g *Grid) ClearObstacle(row, col int) bool {
	if !g.cells[g.index(row, col)].Obstacle {
		return false
	}
	g.MarkObstacle(row, col, false)
	return true
}

// refreshVirtualWalls recomputes the flag for every cell in the 3x3
// neighbourhood of (row, col) from scratch.
func (g *Grid) refreshVirtualWalls(row, col int) {
	for r := row - 1; r <= row+1; r++ {
		for c := col - 1; c <= col+1; c++ {
			if g.IsInBounds(r, c) {
				g.cells[r*g.cols+c].VirtualWall = g.needsVirtualWall(r, c)
			}
		}
	}
}

// needsVirtualWall is true on the border and within one cell of any obstacle.
func (g *Grid) needsVirtualWall(row, col int) bool {
	if g.IsBorder(row, col) {
		return true
	}
	for r := row - 1; r <= row+1; r++ {
		for c := col - 1; c <= col+1; c++ {
			if g.IsInBounds(r, c) && g.cells[r*g.cols+c].Obstacle {
				return true
			}
		}
	}
	return false
}

// RecomputeVirtualWalls rebuilds every virtual-wall flag from the current
// obstacles and the border.
func (g *Grid) RecomputeVirtualWalls() {
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			g.cells[row*g.cols+col].VirtualWall = g.needsVirtualWall(row, col)
		}
	}
}

// MarkFootprint flags the 3x3 body footprint centred on (row, col) as
// moved through, clipped to the grid.
func (g *Grid) MarkFootprint(centerRow, centerCol int) {
	for r := centerRow - 1; r <= centerRow+1; r++ {
		for c := centerCol - 1; c <= centerCol+1; c++ {
			if g.IsInBounds(r, c) {
				g.cells[r*g.cols+c].MoveThru = true
			}
		}
	}
}

// SetAllExplored sets the explored bit on every cell. Clearing it also
// clears obstacles, since an obstacle can only exist on an explored cell.
func (g *Grid) SetAllExplored(explored bool) {
	hadObstacles := false
	for i := range g.cells {
		g.cells[i].Explored = explored
		if !explored && g.cells[i].Obstacle {
			g.cells[i].Obstacle = false
			hadObstacles = true
		}
	}
	if hadObstacles {
		g.RecomputeVirtualWalls()
	}
}

// SetAllMoveThru sets the move-through bit on every cell.
func (g *Grid) SetAllMoveThru(moveThru bool) {
	for i := range g.cells {
		g.cells[i].MoveThru = moveThru
	}
}

// SetPath toggles the route overlay on (row, col).
func (g *Grid) SetPath(row, col int, onPath bool) {
	g.cells[g.index(row, col)].OnPath = onPath
}

// ClearPaths removes the route overlay everywhere.
func (g *Grid) ClearPaths() {
	for i := range g.cells {
		g.cells[i].OnPath = false
	}
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{rows: g.rows, cols: g.cols, cells: make([]Cell, len(g.cells))}
	copy(out.cells, g.cells)
	return out
}
