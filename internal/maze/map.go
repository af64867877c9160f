// ABOUTME: Shared wall-knowledge grid written concurrently by every avatar
// ABOUTME: Wall updates are mirrored onto the neighbor cell under a single lock

package maze

import (
	"fmt"
	"sync"
)

// WallState is what is known about one side of a cell.
type WallState uint8

const (
	Unknown WallState = iota
	Open
	Blocked
)

func (s WallState) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Open:
		return "open"
	case Blocked:
		return "blocked"
	default:
		return fmt.Sprintf("wallstate(%d)", uint8(s))
	}
}

// Cell holds the known state of the four walls around one grid cell.
type Cell struct {
	North WallState
	East  WallState
	South WallState
	West  WallState
}

// Side returns the state of the wall on side d.
func (c Cell) Side(d Direction) WallState {
	switch d {
	case North:
		return c.North
	case East:
		return c.East
	case South:
		return c.South
	case West:
		return c.West
	default:
		panic(fmt.Sprintf("maze: invalid direction %v", d))
	}
}

func (c *Cell) set(d Direction, s WallState) {
	switch d {
	case North:
		c.North = s
	case East:
		c.East = s
	case South:
		c.South = s
	case West:
		c.West = s
	}
}

// Map is the discovered wall grid. It is safe for concurrent use; every avatar
// of a run shares one Map.
type Map struct {
	mu     sync.RWMutex
	width  int
	height int
	cells  []Cell // row-major, index y*width+x
}

// New creates a map with every wall Unknown. It panics on non-positive dimensions.
func New(width, height int) *Map {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("maze: invalid dimensions %dx%d", width, height))
	}
	return &Map{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}
}

// Dimensions returns the map width and height.
func (m *Map) Dimensions() (width, height int) {
	return m.width, m.height
}

// InBounds reports whether p lies inside the map.
func (m *Map) InBounds(p Position) bool {
	return p.X >= 0 && p.X < m.width && p.Y >= 0 && p.Y < m.height
}

func (m *Map) index(x, y int, d Direction) int {
	if !m.InBounds(Position{X: x, Y: y}) {
		panic(fmt.Sprintf("maze: position (%d,%d) outside %dx%d map", x, y, m.width, m.height))
	}
	if !d.Valid() {
		panic(fmt.Sprintf("maze: invalid direction %v", d))
	}
	return y*m.width + x
}

// SetWall records the state of side d of cell (x, y) and the matching side of
// the neighbor, when that neighbor is inside the map. Setting Unknown is ignored:
// knowledge only ever grows.
func (m *Map) SetWall(x, y int, d Direction, s WallState) {
	i := m.index(x, y, d)
	if s == Unknown {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cells[i].set(d, s)

	n := Position{X: x, Y: y}.Step(d)
	if m.InBounds(n) {
		m.cells[n.Y*m.width+n.X].set(d.Opposite(), s)
	}
}

// GetWall returns the known state of side d of cell (x, y).
func (m *Map) GetWall(x, y int, d Direction) WallState {
	i := m.index(x, y, d)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[i].Side(d)
}

// Known counts resolved wall sides across the whole grid.
func (m *Map) Known() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, c := range m.cells {
		for _, d := range Compass {
			if c.Side(d) != Unknown {
				n++
			}
		}
	}
	return n
}

// Snapshot returns an immutable copy of the current grid.
func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cells := make([]Cell, len(m.cells))
	copy(cells, m.cells)
	return Snapshot{Width: m.width, Height: m.height, cells: cells}
}

// Snapshot is a point-in-time copy of a Map.
type Snapshot struct {
	Width  int
	Height int
	cells  []Cell
}

// Cell returns the cell at (x, y). It panics outside the snapshot bounds.
func (s Snapshot) Cell(x, y int) Cell {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		panic(fmt.Sprintf("maze: position (%d,%d) outside %dx%d snapshot", x, y, s.Width, s.Height))
	}
	return s.cells[y*s.Width+x]
}
