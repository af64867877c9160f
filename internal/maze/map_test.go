// ABOUTME: Tests for the shared wall map
// ABOUTME: Covers mirroring, boundaries, monotonic knowledge, snapshots and concurrent writers

package maze

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWall_MirrorsOntoNeighbor(t *testing.T) {
	tests := []struct {
		name     string
		x, y     int
		dir      Direction
		nx, ny   int
		opposite Direction
	}{
		{"east", 1, 1, East, 2, 1, West},
		{"west", 1, 1, West, 0, 1, East},
		{"north", 1, 1, North, 1, 0, South},
		{"south", 1, 1, South, 1, 2, North},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, state := range []WallState{Open, Blocked} {
				m := New(3, 3)
				m.SetWall(tt.x, tt.y, tt.dir, state)

				assert.Equal(t, state, m.GetWall(tt.x, tt.y, tt.dir))
				assert.Equal(t, state, m.GetWall(tt.nx, tt.ny, tt.opposite))
			}
		})
	}
}

func TestSetWall_BoundaryHasNoNeighbor(t *testing.T) {
	m := New(2, 2)

	m.SetWall(1, 0, East, Blocked)
	m.SetWall(0, 0, North, Blocked)

	assert.Equal(t, Blocked, m.GetWall(1, 0, East))
	assert.Equal(t, Blocked, m.GetWall(0, 0, North))
	// Nothing else was touched.
	assert.Equal(t, 2, m.Known())
}

func TestSetWall_IgnoresUnknown(t *testing.T) {
	m := New(2, 2)
	m.SetWall(0, 0, East, Open)
	m.SetWall(0, 0, East, Unknown)

	assert.Equal(t, Open, m.GetWall(0, 0, East))
	assert.Equal(t, Open, m.GetWall(1, 0, West))
}

func TestSetWall_Idempotent(t *testing.T) {
	m := New(2, 2)
	m.SetWall(0, 1, North, Blocked)
	before := m.Snapshot()
	m.SetWall(0, 1, North, Blocked)
	after := m.Snapshot()

	assert.Equal(t, before, after)
}

func TestSetWall_OutOfRangePanics(t *testing.T) {
	m := New(2, 2)

	assert.Panics(t, func() { m.SetWall(2, 0, East, Open) })
	assert.Panics(t, func() { m.SetWall(0, -1, East, Open) })
	assert.Panics(t, func() { m.GetWall(0, 2, North) })
	assert.Panics(t, func() { m.SetWall(0, 0, None, Open) })
}

func TestNew_InvalidDimensionsPanics(t *testing.T) {
	assert.Panics(t, func() { New(0, 3) })
	assert.Panics(t, func() { New(3, -1) })
}

func TestDimensions(t *testing.T) {
	m := New(4, 7)
	w, h := m.Dimensions()
	assert.Equal(t, 4, w)
	assert.Equal(t, 7, h)
}

func TestSnapshot_IsolatedFromLaterWrites(t *testing.T) {
	m := New(2, 1)
	snap := m.Snapshot()

	m.SetWall(0, 0, East, Open)

	assert.Equal(t, Unknown, snap.Cell(0, 0).East)
	assert.Equal(t, Open, m.Snapshot().Cell(0, 0).East)
	assert.Equal(t, Open, m.Snapshot().Cell(1, 0).West)
}

func TestMap_ConcurrentWritersKeepPairsConsistent(t *testing.T) {
	m := New(8, 8)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for y := range 8 {
				for x := range 7 {
					state := Open
					if (x+y+w)%2 == 0 {
						state = Blocked
					}
					m.SetWall(x, y, East, state)
					_ = m.GetWall(x+1, y, West)
				}
			}
		}(w)
	}
	wg.Wait()

	snap := m.Snapshot()
	for y := range 8 {
		for x := range 7 {
			require.Equal(t, snap.Cell(x, y).East, snap.Cell(x+1, y).West, "pair at (%d,%d)", x, y)
			require.NotEqual(t, Unknown, snap.Cell(x, y).East)
		}
	}
}

func TestDirection_OppositeAndDelta(t *testing.T) {
	for _, d := range Compass {
		assert.Equal(t, d, d.Opposite().Opposite())
		dx, dy := d.Delta()
		ox, oy := d.Opposite().Delta()
		assert.Equal(t, 0, dx+ox)
		assert.Equal(t, 0, dy+oy)
	}
	assert.Equal(t, None, None.Opposite())
	assert.Equal(t, Position{X: 1, Y: 0}, Position{X: 1, Y: 1}.Step(North))
	assert.False(t, None.Valid())
}
