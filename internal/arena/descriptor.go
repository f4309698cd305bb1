package arena

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDescriptor is returned when a descriptor string cannot be decoded
// against the grid dimensions.
var ErrDescriptor = errors.New("invalid map descriptor")

const hexDigits = "0123456789ABCDEF"

// ExploredDescriptor encodes the explored bit of every cell, row-major from
// the bottom-left corner, framed by "11" on both ends and packed to hex.
// It is derived on demand and never stored.
func ExploredDescriptor(g *Grid) string {
	bits := make([]bool, 0, len(g.cells)+4)
	bits = append(bits, true, true)
	for _, c := range g.cells {
		bits = append(bits, c.Explored)
	}
	bits = append(bits, true, true)
	return packHex(bits)
}

// ObstacleDescriptor encodes the obstacle bit of each explored cell in the
// same order as ExploredDescriptor, zero padded to a whole byte.
func ObstacleDescriptor(g *Grid) string {
	bits := make([]bool, 0, len(g.cells))
	for _, c := range g.cells {
		if c.Explored {
			bits = append(bits, c.Obstacle)
		}
	}
	return packHex(bits)
}

// ApplyDescriptors resets g and loads explored and obstacle state from a
// descriptor pair produced by ExploredDescriptor and ObstacleDescriptor.
// On error g is left untouched.
func ApplyDescriptors(g *Grid, explored, obstacle string) error {
	exploredBits, err := unpackHex(explored)
	if err != nil {
		return fmt.Errorf("explored descriptor: %w", err)
	}
	obstacleBits, err := unpackHex(obstacle)
	if err != nil {
		return fmt.Errorf("obstacle descriptor: %w", err)
	}
	if len(exploredBits) < len(g.cells)+4 {
		return fmt.Errorf("%w: explored descriptor holds %d bits, need %d", ErrDescriptor, len(exploredBits), len(g.cells)+4)
	}
	if !exploredBits[0] || !exploredBits[1] {
		return fmt.Errorf("%w: explored descriptor missing leading frame bits", ErrDescriptor)
	}

	need := 0
	for _, bit := range exploredBits[2 : 2+len(g.cells)] {
		if bit {
			need++
		}
	}
	if len(obstacleBits) < need {
		return fmt.Errorf("%w: obstacle descriptor holds %d bits, need %d", ErrDescriptor, len(obstacleBits), need)
	}

	g.Reset()
	next := 0
	for i := range g.cells {
		if !exploredBits[i+2] {
			continue
		}
		g.cells[i].Explored = true
		g.cells[i].Obstacle = obstacleBits[next]
		next++
	}
	g.RecomputeVirtualWalls()
	return nil
}

func packHex(bits []bool) string {
	for len(bits)%8 != 0 {
		bits = append(bits, false)
	}
	var sb strings.Builder
	sb.Grow(len(bits) / 4)
	for i := 0; i < len(bits); i += 4 {
		v := 0
		for j := 0; j < 4; j++ {
			v <<= 1
			if bits[i+j] {
				v |= 1
			}
		}
		sb.WriteByte(hexDigits[v])
	}
	return sb.String()
}

func unpackHex(s string) ([]bool, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	bits := make([]bool, 0, len(s)*4)
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(hexDigits, s[i])
		if v < 0 {
			return nil, fmt.Errorf("%w: non-hex character %q at %d", ErrDescriptor, s[i], i)
		}
		for j := 3; j >= 0; j-- {
			bits = append(bits, v&(1<<j) != 0)
		}
	}
	return bits, nil
}
