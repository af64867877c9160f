// Package agent runs the avatars of one maze against the server.
//
// # Overview
//
// A session starts with Initialize on the control port. The InitOK reply
// names the maze port and dimensions; the caller then builds a shared
// maze.Map and hands it to a Supervisor:
//
//	ok, err := agent.Initialize(ctx, "host:17235", agent.SessionParams{NumAvatars: 3, Difficulty: 2})
//	walls := maze.New(ok.MazeWidth, ok.MazeHeight)
//	sup := agent.NewSupervisor(agent.Config{Addr: mazeAddr, NumAvatars: 3, Maze: walls})
//	result, err := sup.Run(ctx)
//
// # Connection
//
// Connection frames the wire protocol over TCP. Dial retries with doubling
// backoff up to RetryPolicy.MaxAttempts and then returns a *ConnectError.
// A connection closes itself when its dial context is cancelled, which
// unblocks a pending Receive.
//
// # Avatars
//
// Each avatar owns one connection and one navigate.Navigator. On its turn it
// asks the navigator for a direction, records what the previous move showed
// in the shared map, and sends AvatarMove. Avatar 0 is the anchor and never
// moves.
//
// # Shutdown
//
//   - MazeSolved on any connection closes Solved() once and cancels every avatar.
//   - A server fault (TooManyMoves, ServerTimeout, ...) ends the run with
//     *ServerFaultError.
//   - A malformed frame ends only the avatar that read it.
//   - Cancelling the Run context stops all avatars.
package agent
