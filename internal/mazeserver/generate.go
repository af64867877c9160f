// ABOUTME: Perfect-maze generation with Wilson's loop-erased random walks
// ABOUTME: Produces a fully known maze.Map and the layout hash reported on MazeSolved

package mazeserver

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/zeebo/blake3"

	"github.com/cannse/server-client-maze-search/internal/maze"
)

// Closed returns a width x height map with every wall blocked.
func Closed(width, height int) *maze.Map {
	m := maze.New(width, height)
	for y := range height {
		for x := range width {
			for _, d := range maze.Compass {
				m.SetWall(x, y, d, maze.Blocked)
			}
		}
	}
	return m
}

// Generate builds a perfect maze: exactly one path between any two cells.
func Generate(width, height int, rng *rand.Rand) *maze.Map {
	m := Closed(width, height)

	total := width * height
	inTree := make([]bool, total)
	index := func(p maze.Position) int { return p.Y*width + p.X }
	randomCell := func() maze.Position {
		return maze.Position{X: rng.IntN(width), Y: rng.IntN(height)}
	}

	inTree[index(randomCell())] = true
	remaining := total - 1

	for remaining > 0 {
		start := randomCell()
		for inTree[index(start)] {
			start = randomCell()
		}

		// Random walk until the tree is hit. Overwriting exits erases loops.
		exits := make(map[maze.Position]maze.Direction)
		for cell := start; !inTree[index(cell)]; {
			d := randomStep(m, cell, rng)
			exits[cell] = d
			cell = cell.Step(d)
		}

		for cell := start; !inTree[index(cell)]; cell = cell.Step(exits[cell]) {
			m.SetWall(cell.X, cell.Y, exits[cell], maze.Open)
			inTree[index(cell)] = true
			remaining--
		}
	}

	return m
}

func randomStep(m *maze.Map, p maze.Position, rng *rand.Rand) maze.Direction {
	var options [4]maze.Direction
	n := 0
	for _, d := range maze.Compass {
		if m.InBounds(p.Step(d)) {
			options[n] = d
			n++
		}
	}
	return options[rng.IntN(n)]
}

// LayoutHash fingerprints a maze layout.
func LayoutHash(m *maze.Map) uint32 {
	snap := m.Snapshot()
	h := blake3.New()

	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:], uint32(snap.Width))
	binary.BigEndian.PutUint32(dims[4:], uint32(snap.Height))
	h.Write(dims[:])

	for y := range snap.Height {
		for x := range snap.Width {
			c := snap.Cell(x, y)
			h.Write([]byte{byte(c.North), byte(c.East), byte(c.South), byte(c.West)})
		}
	}

	sum := h.Sum(nil)
	return binary.BigEndian.Uint32(sum[:4])
}
