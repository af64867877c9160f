// ABOUTME: Relative turns and the orientation frame that maps them to compass directions
// ABOUTME: A frame is a pure function of the direction the avatar faces

package navigate

import (
	"fmt"

	"github.com/cannse/server-client-maze-search/internal/maze"
)

// Turn is a move relative to the avatar's orientation.
type Turn int

const (
	Right Turn = iota
	Straight
	Left
	Backward
)

// Cycle is the order in which turns are attempted.
var Cycle = [4]Turn{Right, Straight, Left, Backward}

func (t Turn) String() string {
	switch t {
	case Right:
		return "right"
	case Straight:
		return "straight"
	case Left:
		return "left"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("turn(%d)", int(t))
	}
}

// next returns the turn after t in Cycle.
func (t Turn) next() Turn {
	return (t + 1) % 4
}

// Frame maps each relative turn to a compass direction.
type Frame struct {
	Straight maze.Direction
	Right    maze.Direction
	Backward maze.Direction
	Left     maze.Direction
}

// FrameFor returns the frame of an avatar facing orientation. It panics if
// orientation is not a compass direction.
func FrameFor(orientation maze.Direction) Frame {
	switch orientation {
	case maze.North:
		return Frame{Straight: maze.North, Right: maze.East, Backward: maze.South, Left: maze.West}
	case maze.East:
		return Frame{Straight: maze.East, Right: maze.South, Backward: maze.West, Left: maze.North}
	case maze.South:
		return Frame{Straight: maze.South, Right: maze.West, Backward: maze.North, Left: maze.East}
	case maze.West:
		return Frame{Straight: maze.West, Right: maze.North, Backward: maze.East, Left: maze.South}
	default:
		panic(fmt.Sprintf("navigate: invalid orientation %v", orientation))
	}
}

// Direction returns the compass direction of turn t.
func (f Frame) Direction(t Turn) maze.Direction {
	switch t {
	case Right:
		return f.Right
	case Straight:
		return f.Straight
	case Left:
		return f.Left
	default:
		return f.Backward
	}
}

// Turn returns the relative turn that points in d. ok is false for None.
func (f Frame) Turn(d maze.Direction) (t Turn, ok bool) {
	for _, t := range Cycle {
		if f.Direction(t) == d {
			return t, true
		}
	}
	return 0, false
}
