// Package report renders the artefacts of a finished run: a PNG of the
// working map and an HTML chart of exploration progress.
package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/gridbot/internal/arena"
)

// cellClass is the legend bucket a cell is drawn in. Later classes win.
type cellClass int

const (
	classUnexplored cellClass = iota
	classFree
	classCovered
	classVirtualWall
	classObstacle
	numClasses
)

var classStyle = [numClasses]struct {
	label string
	color color.RGBA
}{
	classUnexplored:  {"unexplored", color.RGBA{R: 0xbd, G: 0xbd, B: 0xbd, A: 0xff}},
	classFree:        {"explored", color.RGBA{R: 0xe3, G: 0xf2, B: 0xfd, A: 0xff}},
	classCovered:     {"moved through", color.RGBA{R: 0x81, G: 0xc7, B: 0x84, A: 0xff}},
	classVirtualWall: {"virtual wall", color.RGBA{R: 0xff, G: 0xcc, B: 0x80, A: 0xff}},
	classObstacle:    {"obstacle", color.RGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff}},
}

func classify(c arena.Cell) cellClass {
	switch {
	case c.Obstacle:
		return classObstacle
	case !c.Explored:
		return classUnexplored
	case c.VirtualWall:
		return classVirtualWall
	case c.MoveThru:
		return classCovered
	default:
		return classFree
	}
}

// cellSize is the drawn edge of one grid cell.
const cellSize = 18 * vg.Millimeter / 4

// RenderMap draws g as a PNG with one square per cell, column on X and
// row on Y, and marks the robot centre at pos.
func RenderMap(w io.Writer, g *arena.Grid, pos arena.Point, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row"
	p.X.Min, p.X.Max = -1, float64(g.Cols())
	p.Y.Min, p.Y.Max = -1, float64(g.Rows())

	var pts [numClasses]plotter.XYs
	g.Each(func(c arena.Cell) {
		k := classify(c)
		pts[k] = append(pts[k], plotter.XY{X: float64(c.Pos.Col), Y: float64(c.Pos.Row)})
	})

	for k := cellClass(0); k < numClasses; k++ {
		if len(pts[k]) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts[k])
		if err != nil {
			return fmt.Errorf("%s cells: %w", classStyle[k].label, err)
		}
		s.GlyphStyle = draw.GlyphStyle{Color: classStyle[k].color, Radius: cellSize / 2, Shape: draw.BoxGlyph{}}
		p.Add(s)
		p.Legend.Add(classStyle[k].label, s)
	}

	robot, err := plotter.NewScatter(plotter.XYs{{X: float64(pos.Col), Y: float64(pos.Row)}})
	if err != nil {
		return err
	}
	robot.GlyphStyle = draw.GlyphStyle{Color: color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff}, Radius: cellSize * 3 / 2, Shape: draw.RingGlyph{}}
	p.Add(robot)
	p.Legend.Add("robot", robot)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	width := cellSize*vg.Length(g.Cols()+2) + 6*vg.Centimeter
	height := cellSize*vg.Length(g.Rows()+2) + 3*vg.Centimeter
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write map png: %w", err)
	}
	return nil
}
