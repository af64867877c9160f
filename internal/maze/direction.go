// ABOUTME: Compass directions and grid positions shared by the map, navigator and codec
// ABOUTME: Direction values are the wire values used by the maze server

package maze

import "fmt"

// Direction is a compass direction. The numeric values match the server's wire encoding.
type Direction uint32

const (
	West  Direction = 0
	North Direction = 1
	South Direction = 2
	East  Direction = 3

	// None is the null move: the avatar stays where it is.
	None Direction = 8
)

// Compass lists the four movable directions in wire order.
var Compass = [4]Direction{West, North, South, East}

// Valid reports whether d is one of the four compass directions.
func (d Direction) Valid() bool {
	return d <= East
}

// Opposite returns the direction pointing the other way. None maps to None.
func (d Direction) Opposite() Direction {
	switch d {
	case West:
		return East
	case East:
		return West
	case North:
		return South
	case South:
		return North
	default:
		return None
	}
}

// Delta returns the coordinate offset of one step in d.
// y grows southward, so North is (0, -1).
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case West:
		return -1, 0
	case East:
		return 1, 0
	case North:
		return 0, -1
	case South:
		return 0, 1
	default:
		return 0, 0
	}
}

func (d Direction) String() string {
	switch d {
	case West:
		return "west"
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case None:
		return "none"
	default:
		return fmt.Sprintf("direction(%d)", uint32(d))
	}
}

// Position is a cell coordinate.
type Position struct {
	X int
	Y int
}

// Step returns the neighboring position in direction d.
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
