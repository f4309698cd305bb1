package arena

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is an integer grid coordinate.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pt is a convenience constructor for Point.
func Pt(row, col int) Point {
	return Point{Row: row, Col: col}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{Row: p.Row + q.Row, Col: p.Col + q.Col}
}

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Point {
	return Point{Row: p.Row - q.Row, Col: p.Col - q.Col}
}

// Scale multiplies both axes by k.
func (p Point) Scale(k int) Point {
	return Point{Row: p.Row * k, Col: p.Col * k}
}

// Vec returns p as a planar vector with X along columns and Y along rows.
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: float64(p.Col), Y: float64(p.Row)}
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return r2.Norm(r2.Sub(p.Vec(), q.Vec()))
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Direction is one of the four cardinal headings, ordered clockwise.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

var directionNames = [...]string{"up", "right", "down", "left"}

func (d Direction) String() string {
	if d < Up || d > Left {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the lower- or upper-case direction name.
func ParseDirection(s string) (Direction, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return Up, fmt.Errorf("unknown direction %q: expected up, right, down or left", s)
}

// Clockwise returns the heading one quarter-turn to the right.
func (d Direction) Clockwise() Direction {
	return (d + 1) % 4
}

// AntiClockwise returns the heading one quarter-turn to the left.
func (d Direction) AntiClockwise() Direction {
	return (d + 3) % 4
}

// Opposite returns the reverse heading.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// Delta is the unit displacement of one step along d.
func (d Direction) Delta() Point {
	switch d {
	case Up:
		return Point{Row: 1}
	case Down:
		return Point{Row: -1}
	case Left:
		return Point{Col: -1}
	default:
		return Point{Col: 1}
	}
}

// DirectionBetween returns the heading that leads from a towards b. The two
// points are expected to share a row or a column and to differ.
func DirectionBetween(a, b Point) Direction {
	switch {
	case a.Row > b.Row:
		return Down
	case a.Row < b.Row:
		return Up
	case a.Col > b.Col:
		return Left
	default:
		return Right
	}
}
