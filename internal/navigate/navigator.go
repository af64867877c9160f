// ABOUTME: Per-avatar right-hand wall-following state machine
// ABOUTME: Turns each AvatarTurn observation into the next move and updates shared walls

package navigate

import (
	"fmt"

	"github.com/cannse/server-client-maze-search/internal/maze"
)

// Walls is the part of the shared map the navigator reads and writes.
// It is consulted on every decision; nothing is cached between turns.
type Walls interface {
	GetWall(x, y int, d maze.Direction) maze.WallState
	SetWall(x, y int, d maze.Direction, s maze.WallState)
}

// State is the avatar lifecycle.
type State int

const (
	AwaitingTurn State = iota
	Deciding
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingTurn:
		return "awaiting_turn"
	case Deciding:
		return "deciding"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AnchorID is the avatar that never moves; every other avatar walks to it.
const AnchorID = 0

// Outcome classifies what the last turn revealed.
type Outcome int

const (
	// Idle: the avatar is stationary and reports None.
	Idle Outcome = iota
	// Baseline: first own turn, nothing to classify yet.
	Baseline
	// Bumped: the previous move hit a wall.
	Bumped
	// Moved: the previous move succeeded.
	Moved
	// Arrived: the previous move reached the anchor; the avatar is now stationary.
	Arrived
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Baseline:
		return "baseline"
	case Bumped:
		return "bumped"
	case Moved:
		return "moved"
	case Arrived:
		return "arrived"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the move to send for one turn.
type Decision struct {
	Direction  maze.Direction
	Outcome    Outcome
	Position   maze.Position
	MoveNumber int // successful moves so far; meaningful for Moved and Arrived
}

// Navigator holds one avatar's state.
type Navigator struct {
	id          int
	walls       Walls
	state       State
	position    maze.Position
	previous    maze.Position
	orientation maze.Direction
	frame       Frame
	pending     maze.Direction
	observed    bool // a position has been recorded
	started     bool // first own turn has happened
	moves       int
}

// New creates the navigator for avatar id. The anchor starts stationary; every
// other avatar faces North.
func New(id int, walls Walls) *Navigator {
	n := &Navigator{
		id:          id,
		walls:       walls,
		state:       AwaitingTurn,
		orientation: maze.North,
		frame:       FrameFor(maze.North),
		pending:     maze.East,
	}
	if id == AnchorID {
		n.pending = maze.None
	}
	return n
}

// ID returns the avatar id.
func (n *Navigator) ID() int { return n.id }

// State returns the lifecycle state.
func (n *Navigator) State() State { return n.state }

// Position returns the last observed position.
func (n *Navigator) Position() maze.Position { return n.position }

// Orientation returns the direction the avatar faces.
func (n *Navigator) Orientation() maze.Direction { return n.orientation }

// Pending returns the move that will be, or was last, sent.
func (n *Navigator) Pending() maze.Direction { return n.pending }

// Moves returns the number of successful moves.
func (n *Navigator) Moves() int { return n.moves }

// Stationary reports whether the avatar only sends None.
func (n *Navigator) Stationary() bool { return n.pending == maze.None }

// Finish moves the navigator to Done. It is absorbing.
func (n *Navigator) Finish() {
	n.state = Done
}

// Turn processes one AvatarTurn. It returns ok=false when the turn belongs to
// another avatar or the navigator is Done; otherwise the decision must be sent.
func (n *Navigator) Turn(turnID int, positions []maze.Position) (d Decision, ok bool) {
	if n.state == Done {
		return Decision{}, false
	}
	if n.id >= len(positions) {
		return Decision{}, false
	}

	current := positions[n.id]
	n.position = current
	if !n.observed {
		n.previous = current
		n.observed = true
	}

	if turnID != n.id {
		return Decision{}, false
	}

	n.state = Deciding
	d = n.decide(current, positions[AnchorID])
	n.state = AwaitingTurn
	return d, true
}

func (n *Navigator) decide(current, anchor maze.Position) Decision {
	if n.pending == maze.None {
		return Decision{Direction: maze.None, Outcome: Idle, Position: current, MoveNumber: n.moves}
	}

	if !n.started {
		n.started = true
		n.pending = n.choose(current)
		return Decision{Direction: n.pending, Outcome: Baseline, Position: current}
	}

	if current == n.previous {
		n.walls.SetWall(current.X, current.Y, n.pending, maze.Blocked)
		n.pending = n.advance(current)
		return Decision{Direction: n.pending, Outcome: Bumped, Position: current, MoveNumber: n.moves}
	}

	n.walls.SetWall(n.previous.X, n.previous.Y, n.pending, maze.Open)
	n.moves++
	n.previous = current

	if current == anchor {
		n.pending = maze.None
		return Decision{Direction: maze.None, Outcome: Arrived, Position: current, MoveNumber: n.moves}
	}

	n.orientation = n.pending
	n.frame = FrameFor(n.orientation)
	n.pending = n.choose(current)
	return Decision{Direction: n.pending, Outcome: Moved, Position: current, MoveNumber: n.moves}
}

func (n *Navigator) passable(p maze.Position, t Turn) bool {
	return n.walls.GetWall(p.X, p.Y, n.frame.Direction(t)) != maze.Blocked
}

// choose picks the first of right, straight and left that is not known to be
// blocked, falling back to backward.
func (n *Navigator) choose(p maze.Position) maze.Direction {
	for _, t := range [...]Turn{Right, Straight, Left} {
		if n.passable(p, t) {
			return n.frame.Direction(t)
		}
	}
	return n.frame.Backward
}

// advance moves the pending turn forward through Cycle after a failed move,
// skipping sides already known to be blocked. If every side is blocked it takes
// the next turn in the cycle.
func (n *Navigator) advance(p maze.Position) maze.Direction {
	from, ok := n.frame.Turn(n.pending)
	if !ok {
		return n.frame.Right
	}
	t := from.next()
	for range len(Cycle) - 1 {
		if n.passable(p, t) {
			return n.frame.Direction(t)
		}
		t = t.next()
	}
	return n.frame.Direction(from.next())
}
