// ABOUTME: Message type tags, limits and error classes of the maze server protocol
// ABOUTME: Any type with the high bit set is an error reported by the server

package protocol

import "fmt"

// Type identifies a message on the wire.
type Type uint32

// ErrorMask marks error-class message types.
const ErrorMask Type = 0x80000000

const (
	TypeInit              Type = 0x00000001
	TypeInitOK            Type = 0x00000002
	TypeInitFailed        Type = 0x00000004 | ErrorMask
	TypeAvatarReady       Type = 0x00000008
	TypeAvatarTurn        Type = 0x00000010
	TypeAvatarMove        Type = 0x00000020
	TypeAvatarOutOfTurn   Type = 0x00000040 | ErrorMask
	TypeMazeSolved        Type = 0x00000080
	TypeUnknownMsgType    Type = 0x01000000 | ErrorMask
	TypeUnexpectedMsgType Type = 0x02000000 | ErrorMask
	TypeTooManyMoves      Type = 0x04000000 | ErrorMask
	TypeServerTimeout     Type = 0x08000000 | ErrorMask
	TypeServerDiskQuota   Type = 0x10000000 | ErrorMask
	TypeServerOutOfMemory Type = 0x20000000 | ErrorMask
)

// InitFailed error numbers.
const (
	initErrorMask         uint32 = 0x40000000 | uint32(ErrorMask)
	InitErrTooManyAvatars uint32 = 0x01000000 | initErrorMask
	InitErrBadDifficulty  uint32 = 0x02000000 | initErrorMask
)

// Server limits and defaults.
const (
	DefaultPort   = 17235
	MaxAvatars    = 10
	MaxDifficulty = 9
	MinAvatars    = 2
)

// IsError reports whether t belongs to the error class.
func (t Type) IsError() bool {
	return t&ErrorMask != 0
}

func (t Type) String() string {
	switch t {
	case TypeInit:
		return "Init"
	case TypeInitOK:
		return "InitOK"
	case TypeInitFailed:
		return "InitFailed"
	case TypeAvatarReady:
		return "AvatarReady"
	case TypeAvatarTurn:
		return "AvatarTurn"
	case TypeAvatarMove:
		return "AvatarMove"
	case TypeAvatarOutOfTurn:
		return "AvatarOutOfTurn"
	case TypeMazeSolved:
		return "MazeSolved"
	case TypeUnknownMsgType:
		return "UnknownMsgType"
	case TypeUnexpectedMsgType:
		return "UnexpectedMsgType"
	case TypeTooManyMoves:
		return "TooManyMoves"
	case TypeServerTimeout:
		return "ServerTimeout"
	case TypeServerDiskQuota:
		return "ServerDiskQuota"
	case TypeServerOutOfMemory:
		return "ServerOutOfMemory"
	default:
		return fmt.Sprintf("Type(%#08x)", uint32(t))
	}
}

// InitErrorText describes an InitFailed error number.
func InitErrorText(errNum uint32) string {
	switch errNum {
	case InitErrTooManyAvatars:
		return "too many avatars"
	case InitErrBadDifficulty:
		return "bad difficulty"
	default:
		return fmt.Sprintf("init error %#08x", errNum)
	}
}
