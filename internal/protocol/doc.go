// Package protocol encodes and decodes the maze server's wire messages.
//
// Every message is a fixed 88-byte frame: a big-endian uint32 type followed
// by the message body, zero padded. Types with the high bit set are errors
// and decode to Fault, whether or not the type is known by name.
//
//	buf := protocol.Marshal(protocol.AvatarMove{AvatarID: 1, Direction: maze.East})
//	msg, err := protocol.Unmarshal(buf)
//
// Unmarshal never returns a partially filled message with an error. Frames
// of the wrong length or of an unknown non-error type yield *ProtocolError.
package protocol
