// Package mapfile reads and writes reference arenas. Two encodings are
// accepted: a text picture with one line of '0' (free) and '1' (obstacle)
// per row, first line on top; or the explored/obstacle hex descriptor
// pair, one per line.
package mapfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/fsutil"
	"github.com/banshee-data/gridbot/internal/monitoring"
)

// ErrDimensions is returned when a text map does not match the requested
// grid size.
var ErrDimensions = errors.New("map dimensions do not match grid")

const maxFileSize = 64 * 1024

// Format identifies the encoding of a map file.
type Format int

const (
	FormatText Format = iota
	FormatDescriptor
)

func (f Format) String() string {
	if f == FormatDescriptor {
		return "descriptor"
	}
	return "text"
}

// Load reads path from fsys and parses it into a rows x cols grid.
func Load(fsys fsutil.FileSystem, path string, rows, cols int) (*arena.Grid, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat map file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("map file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	g, format, err := Parse(data, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Logf("loaded %dx%d %s map from %s: %d obstacles", rows, cols, format, path, countObstacles(g))
	return g, nil
}

// Parse decodes data in either encoding. Text maps describe a fully known
// arena, so every cell comes back explored.
func Parse(data []byte, rows, cols int) (*arena.Grid, Format, error) {
	g, err := arena.New(rows, cols)
	if err != nil {
		return nil, FormatText, err
	}
	lines := significantLines(data)

	if isDescriptorPair(lines, rows) {
		obstacle := ""
		if len(lines) == 2 {
			obstacle = lines[1]
		}
		if err := arena.ApplyDescriptors(g, lines[0], obstacle); err != nil {
			return nil, FormatDescriptor, err
		}
		return g, FormatDescriptor, nil
	}

	if len(lines) != rows {
		return nil, FormatText, fmt.Errorf("%w: %d rows, want %d", ErrDimensions, len(lines), rows)
	}
	g.SetAllExplored(true)
	for i, line := range lines {
		if len(line) != cols {
			return nil, FormatText, fmt.Errorf("%w: line %d has %d columns, want %d", ErrDimensions, i+1, len(line), cols)
		}
		row := rows - 1 - i
		for col := 0; col < cols; col++ {
			switch line[col] {
			case '0':
			case '1':
				g.MarkObstacle(row, col, true)
			default:
				return nil, FormatText, fmt.Errorf("line %d column %d: unexpected %q", i+1, col+1, line[col])
			}
		}
	}
	return g, FormatText, nil
}

// significantLines returns the trimmed, non-blank lines of data with any
// interior whitespace removed.
func significantLines(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.Join(strings.Fields(sc.Text()), "")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// isDescriptorPair treats one or two lines as descriptors unless they
// could be a complete text picture.
func isDescriptorPair(lines []string, rows int) bool {
	if len(lines) == 0 || len(lines) > 2 || len(lines) == rows {
		return false
	}
	for _, l := range lines {
		for _, ch := range l {
			if !strings.ContainsRune("0123456789ABCDEFabcdef", ch) {
				return false
			}
		}
	}
	return true
}

// Encode writes g as a text picture with the top row first.
func Encode(g *arena.Grid) []byte {
	var b bytes.Buffer
	b.Grow(g.Rows() * (g.Cols() + 1))
	for row := g.Rows() - 1; row >= 0; row-- {
		for col := 0; col < g.Cols(); col++ {
			if g.Cell(row, col).Obstacle {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// EncodeDescriptors writes the explored and obstacle descriptors of g on
// two lines.
func EncodeDescriptors(g *arena.Grid) []byte {
	return []byte(arena.ExploredDescriptor(g) + "\n" + arena.ObstacleDescriptor(g) + "\n")
}

// Save writes g to path in the given format.
func Save(fsys fsutil.FileSystem, path string, g *arena.Grid, format Format) error {
	data := Encode(g)
	if format == FormatDescriptor {
		data = EncodeDescriptors(g)
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write map file: %w", err)
	}
	return nil
}

func countObstacles(g *arena.Grid) int {
	n := 0
	g.Each(func(c arena.Cell) {
		if c.Obstacle {
			n++
		}
	})
	return n
}
