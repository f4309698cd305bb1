package robot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridbot/internal/arena"
)

type staticSource struct {
	readings map[string]int
	err      error
}

func (s staticSource) Readings(context.Context, []Sensor) (map[string]int, error) {
	return s.readings, s.err
}

// singleSensor is a robot with one sensor on the body centre, handy for exact ray tests.
func singleSensor(t *testing.T, start arena.Point, band RangeBand, facing arena.Direction, retract bool) *Robot {
	t.Helper()
	r, err := New(Config{
		Start:           start,
		Sensors:         []SensorSpec{{ID: "P", Range: band, Facing: facing}},
		RetractPhantoms: retract,
	})
	require.NoError(t, err)
	return r
}

func referenceWith(rows, cols int, obstacles ...arena.Point) *arena.Grid {
	g := arena.MustNew(rows, cols)
	g.SetAllExplored(true)
	for _, p := range obstacles {
		g.MarkObstacle(p.Row, p.Col, true)
	}
	return g
}

func TestSensor_CastRay(t *testing.T) {
	ref := referenceWith(8, 8, arena.Pt(5, 3))
	tests := []struct {
		name   string
		pos    arena.Point
		facing arena.Direction
		max    int
		want   int
	}{
		{"hit at two", arena.Pt(3, 3), arena.Up, 4, 2},
		{"out of range", arena.Pt(1, 3), arena.Up, 3, NoReading},
		{"off grid first", arena.Pt(6, 6), arena.Right, 4, NoReading},
		{"adjacent", arena.Pt(5, 4), arena.Left, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSensor("S", 1, tt.max, tt.pos, tt.facing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.CastRay(ref))
		})
	}
}

func TestSensor_AcceptDoesNotClamp(t *testing.T) {
	s, err := NewSensor("L1", 3, 5, arena.Pt(1, 1), arena.Left)
	require.NoError(t, err)
	assert.Equal(t, NoReading, s.Accept(2))
	assert.Equal(t, 3, s.Accept(3))
	assert.Equal(t, 5, s.Accept(5))
	assert.Equal(t, NoReading, s.Accept(6))
	assert.Equal(t, NoReading, s.Accept(NoReading))
}

func TestSense_CentreObstacleOnPracticeGrid(t *testing.T) {
	ref := referenceWith(5, 5, arena.Pt(2, 2))
	work := arena.MustNew(5, 5)
	r := singleSensor(t, arena.Pt(1, 2), RangeBand{Min: 1, Max: 1}, arena.Up, false)

	res := r.Sense(context.Background(), work, SimulatedSource{Reference: ref})
	require.False(t, res.Skipped)
	assert.Equal(t, map[string]int{"P": 1}, res.Readings)
	assert.Equal(t, []arena.Point{arena.Pt(2, 2)}, res.Obstacles)

	assert.True(t, work.Cell(2, 2).Obstacle)
	for row := 1; row <= 3; row++ {
		for col := 1; col <= 3; col++ {
			assert.True(t, work.Cell(row, col).VirtualWall, "(%d,%d)", row, col)
		}
	}
}

func TestSense_NoReadingExploresFullRange(t *testing.T) {
	work := arena.MustNew(10, 10)
	r := singleSensor(t, arena.Pt(2, 5), RangeBand{Min: 1, Max: 4}, arena.Up, false)

	res := r.Sense(context.Background(), work, staticSource{readings: map[string]int{"P": 9}})
	require.False(t, res.Skipped)
	assert.Equal(t, NoReading, res.Readings["P"])
	assert.Empty(t, res.Obstacles)
	assert.Equal(t, 4, res.NewlyExplored)
	for row := 3; row <= 6; row++ {
		assert.True(t, work.Cell(row, 5).Explored)
	}
	assert.False(t, work.Cell(7, 5).Explored)
}

func TestSense_WalkStartsAtMinRange(t *testing.T) {
	work := arena.MustNew(12, 12)
	r := singleSensor(t, arena.Pt(5, 8), RangeBand{Min: 3, Max: 5}, arena.Left, false)

	r.Sense(context.Background(), work, staticSource{readings: map[string]int{"P": 4}})
	assert.False(t, work.Cell(5, 7).Explored, "blind zone is not sensed")
	assert.False(t, work.Cell(5, 6).Explored)
	assert.True(t, work.Cell(5, 5).Explored)
	assert.True(t, work.Cell(5, 4).Obstacle)
	assert.False(t, work.Cell(5, 3).Explored, "walk stops at the obstacle")
}

func TestSense_OffGridEndsWalk(t *testing.T) {
	work := arena.MustNew(6, 6)
	r := singleSensor(t, arena.Pt(4, 4), RangeBand{Min: 1, Max: 5}, arena.Right, false)

	res := r.Sense(context.Background(), work, staticSource{readings: map[string]int{"P": NoReading}})
	assert.Equal(t, 1, res.NewlyExplored)
	assert.Empty(t, res.Obstacles)
}

func TestSense_MovedThroughCellIsNeverObstacle(t *testing.T) {
	work := arena.MustNew(8, 8)
	work.MarkFootprint(3, 3)
	r := singleSensor(t, arena.Pt(2, 3), RangeBand{Min: 1, Max: 3}, arena.Up, false)

	res := r.Sense(context.Background(), work, staticSource{readings: map[string]int{"P": 1}})
	assert.Empty(t, res.Obstacles)
	assert.False(t, work.Cell(3, 3).Obstacle)
	assert.True(t, work.Cell(5, 3).Explored, "walk continues past a moved-through hit")
}

func TestSense_SkippedPassLeavesGridUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		src     ReadingSource
		wantErr error
	}{
		{"source error", staticSource{err: errors.New("timeout")}, nil},
		{"empty response", staticSource{readings: map[string]int{}}, ErrNoReadings},
		{"unknown ids only", staticSource{readings: map[string]int{"Z9": 1}}, ErrNoReadings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			work := arena.MustNew(8, 8)
			r := newTestRobot(t, arena.Pt(3, 3), arena.Up)
			explored, obstacles := arena.ExploredDescriptor(work), arena.ObstacleDescriptor(work)

			res := r.Sense(context.Background(), work, tt.src)
			assert.True(t, res.Skipped)
			require.Error(t, res.Reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Reason, tt.wantErr)
			}
			assert.Equal(t, explored, arena.ExploredDescriptor(work))
			assert.Equal(t, obstacles, arena.ObstacleDescriptor(work))
		})
	}
}

func TestSense_PartialResponseSkipsMissingSensors(t *testing.T) {
	work := arena.MustNew(10, 10)
	r := newTestRobot(t, arena.Pt(3, 3), arena.Up)

	res := r.Sense(context.Background(), work, staticSource{readings: map[string]int{"F2": 2}})
	require.False(t, res.Skipped)
	assert.Len(t, res.Readings, 1)
	assert.True(t, work.Cell(6, 3).Obstacle)
	assert.False(t, work.Cell(5, 2).Explored, "F1 had no reading")
}

func TestSense_RetractsPhantomObstacle(t *testing.T) {
	work := arena.MustNew(10, 10)
	work.MarkObstacle(4, 5, true)
	require.True(t, work.Cell(3, 4).VirtualWall)

	r := singleSensor(t, arena.Pt(2, 5), RangeBand{Min: 1, Max: 4}, arena.Up, true)
	res := r.Sense(context.Background(), work, staticSource{readings: map[string]int{"P": 4}})

	assert.Equal(t, []arena.Point{arena.Pt(4, 5)}, res.Retracted)
	assert.False(t, work.Cell(4, 5).Obstacle)
	assert.False(t, work.Cell(3, 4).VirtualWall)
	assert.True(t, work.Cell(6, 5).Obstacle)
}

func TestSense_KeepsObstacleWithoutRetraction(t *testing.T) {
	work := arena.MustNew(10, 10)
	work.MarkObstacle(4, 5, true)

	r := singleSensor(t, arena.Pt(2, 5), RangeBand{Min: 1, Max: 4}, arena.Up, false)
	r.Sense(context.Background(), work, staticSource{readings: map[string]int{"P": 4}})
	assert.True(t, work.Cell(4, 5).Obstacle)
}
