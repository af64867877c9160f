// ABOUTME: Message structs for each protocol variant and the fixed-size frame codec
// ABOUTME: Every frame is a big-endian type word followed by an 84-byte union

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cannse/server-client-maze-search/internal/maze"
)

// Size is the length in bytes of every frame on the wire.
const Size = 4 + 4 + 8*MaxAvatars

// Message is one decoded protocol message.
type Message interface {
	Type() Type
}

// Init asks the control port for a new maze.
type Init struct {
	NumAvatars int
	Difficulty int
}

// InitOK answers Init with the maze port and dimensions.
type InitOK struct {
	MazePort   int
	MazeWidth  int
	MazeHeight int
}

// AvatarReady announces an avatar on its maze connection.
type AvatarReady struct {
	AvatarID int
}

// AvatarTurn reports whose turn it is and where every avatar stands.
// Positions always carries MaxAvatars entries; unused slots are zero.
type AvatarTurn struct {
	TurnID    int
	Positions []maze.Position
}

// AvatarMove is an avatar's decision for its turn.
type AvatarMove struct {
	AvatarID  int
	Direction maze.Direction
}

// MazeSolved is broadcast once every avatar shares a cell.
type MazeSolved struct {
	NumAvatars int
	Difficulty int
	NumMoves   int
	Hash       uint32
}

// Fault is any error-class message. Detail holds the first payload word:
// the error number for InitFailed, the offending type for UnknownMsgType.
type Fault struct {
	Kind   Type
	Detail uint32
}

func (Init) Type() Type        { return TypeInit }
func (InitOK) Type() Type      { return TypeInitOK }
func (AvatarReady) Type() Type { return TypeAvatarReady }
func (AvatarTurn) Type() Type  { return TypeAvatarTurn }
func (AvatarMove) Type() Type  { return TypeAvatarMove }
func (MazeSolved) Type() Type  { return TypeMazeSolved }
func (f Fault) Type() Type     { return f.Kind }

func (f Fault) Error() string {
	if f.Kind == TypeInitFailed {
		return fmt.Sprintf("%s: %s", f.Kind, InitErrorText(f.Detail))
	}
	return f.Kind.String()
}

// ProtocolError reports a frame that cannot be decoded.
type ProtocolError struct {
	Reason string
	Type   Type
}

func (e *ProtocolError) Error() string {
	if e.Type != 0 {
		return fmt.Sprintf("protocol error: %s (type %#08x)", e.Reason, uint32(e.Type))
	}
	return "protocol error: " + e.Reason
}

// Marshal encodes m into a Size-byte frame.
func Marshal(m Message) []byte {
	buf := make([]byte, Size)
	be := binary.BigEndian
	be.PutUint32(buf[0:], uint32(m.Type()))

	switch v := m.(type) {
	case Init:
		be.PutUint32(buf[4:], uint32(v.NumAvatars))
		be.PutUint32(buf[8:], uint32(v.Difficulty))
	case InitOK:
		be.PutUint32(buf[4:], uint32(v.MazePort))
		be.PutUint32(buf[8:], uint32(v.MazeWidth))
		be.PutUint32(buf[12:], uint32(v.MazeHeight))
	case AvatarReady:
		be.PutUint32(buf[4:], uint32(v.AvatarID))
	case AvatarTurn:
		be.PutUint32(buf[4:], uint32(v.TurnID))
		for i, p := range v.Positions {
			if i >= MaxAvatars {
				break
			}
			be.PutUint32(buf[8+8*i:], uint32(p.X))
			be.PutUint32(buf[12+8*i:], uint32(p.Y))
		}
	case AvatarMove:
		be.PutUint32(buf[4:], uint32(v.AvatarID))
		be.PutUint32(buf[8:], uint32(v.Direction))
	case MazeSolved:
		be.PutUint32(buf[4:], uint32(v.NumAvatars))
		be.PutUint32(buf[8:], uint32(v.Difficulty))
		be.PutUint32(buf[12:], uint32(v.NumMoves))
		be.PutUint32(buf[16:], v.Hash)
	case Fault:
		be.PutUint32(buf[4:], v.Detail)
	}
	return buf
}

// Unmarshal decodes one frame. Error-class types decode to Fault regardless of
// whether the kind is known; an unknown non-error type is a ProtocolError.
func Unmarshal(buf []byte) (Message, error) {
	if len(buf) != Size {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame is %d bytes, want %d", len(buf), Size)}
	}

	be := binary.BigEndian
	t := Type(be.Uint32(buf[0:]))
	word := func(off int) int { return int(be.Uint32(buf[off:])) }

	if t.IsError() {
		return Fault{Kind: t, Detail: be.Uint32(buf[4:])}, nil
	}

	switch t {
	case TypeInit:
		return Init{NumAvatars: word(4), Difficulty: word(8)}, nil
	case TypeInitOK:
		return InitOK{MazePort: word(4), MazeWidth: word(8), MazeHeight: word(12)}, nil
	case TypeAvatarReady:
		return AvatarReady{AvatarID: word(4)}, nil
	case TypeAvatarTurn:
		turn := AvatarTurn{TurnID: word(4), Positions: make([]maze.Position, MaxAvatars)}
		for i := range turn.Positions {
			turn.Positions[i] = maze.Position{X: word(8 + 8*i), Y: word(12 + 8*i)}
		}
		return turn, nil
	case TypeAvatarMove:
		return AvatarMove{AvatarID: word(4), Direction: maze.Direction(be.Uint32(buf[8:]))}, nil
	case TypeMazeSolved:
		return MazeSolved{
			NumAvatars: word(4),
			Difficulty: word(8),
			NumMoves:   word(12),
			Hash:       be.Uint32(buf[16:]),
		}, nil
	default:
		return nil, &ProtocolError{Reason: "unknown message type", Type: t}
	}
}

// WriteMessage writes one frame to w.
func WriteMessage(w io.Writer, m Message) error {
	if _, err := w.Write(Marshal(m)); err != nil {
		return fmt.Errorf("write %s: %w", m.Type(), err)
	}
	return nil
}

// ReadMessage reads and decodes exactly one frame from r.
func ReadMessage(r io.Reader) (Message, error) {
	buf := make([]byte, Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return Unmarshal(buf)
}
