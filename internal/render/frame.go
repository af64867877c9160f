// ABOUTME: Immutable maze frames and their terminal drawing with lipgloss
// ABOUTME: Blocked walls are solid, unknown walls dim, avatars shown by ID

package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cannse/server-client-maze-search/internal/maze"
)

// Frame is the shared map and avatar positions after one turn.
type Frame struct {
	Maze      maze.Snapshot
	Positions []maze.Position
	Turn      int
	Solved    bool
}

// NewFrame snapshots m. positions is copied.
func NewFrame(m *maze.Map, turn int, positions []maze.Position) Frame {
	return Frame{
		Maze:      m.Snapshot(),
		Positions: append([]maze.Position(nil), positions...),
		Turn:      turn,
	}
}

var (
	wallStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
	avatarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	anchorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	captionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	solvedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

func horizontal(s maze.WallState) string {
	switch s {
	case maze.Blocked:
		return wallStyle.Render("---")
	case maze.Open:
		return "   "
	default:
		return unknownStyle.Render("...")
	}
}

func vertical(s maze.WallState) string {
	switch s {
	case maze.Blocked:
		return wallStyle.Render("|")
	case maze.Open:
		return " "
	default:
		return unknownStyle.Render(":")
	}
}

// occupants maps each occupied cell to the lowest avatar ID on it and a count.
func occupants(positions []maze.Position) map[maze.Position][2]int {
	out := make(map[maze.Position][2]int, len(positions))
	for id, p := range positions {
		o, ok := out[p]
		if !ok {
			out[p] = [2]int{id, 1}
			continue
		}
		o[1]++
		out[p] = o
	}
	return out
}

func cellLabel(o [2]int, ok bool) string {
	if !ok {
		return "   "
	}
	if o[1] > 1 {
		return avatarStyle.Render(" * ")
	}
	if o[0] == 0 {
		return anchorStyle.Render(" 0 ")
	}
	return avatarStyle.Render(" " + strconv.Itoa(o[0]%10) + " ")
}

// Draw renders the frame's maze. Cells holding several avatars show "*".
func Draw(f Frame) string {
	w, h := f.Maze.Width, f.Maze.Height
	if w <= 0 || h <= 0 {
		return ""
	}
	occ := occupants(f.Positions)

	var b strings.Builder
	for y := range h {
		for x := range w {
			b.WriteString("+")
			b.WriteString(horizontal(f.Maze.Cell(x, y).North))
		}
		b.WriteString("+\n")

		for x := range w {
			b.WriteString(vertical(f.Maze.Cell(x, y).West))
			o, ok := occ[maze.Position{X: x, Y: y}]
			b.WriteString(cellLabel(o, ok))
		}
		b.WriteString(vertical(f.Maze.Cell(w-1, y).East))
		b.WriteString("\n")
	}
	for x := range w {
		b.WriteString("+")
		b.WriteString(horizontal(f.Maze.Cell(x, h-1).South))
	}
	b.WriteString("+")

	return b.String()
}

// Caption is a one-line status for the frame.
func Caption(f Frame) string {
	if f.Solved {
		return solvedStyle.Render(fmt.Sprintf("solved after turn %d", f.Turn))
	}
	return captionStyle.Render(fmt.Sprintf("turn %d  avatars %d  maze %dx%d",
		f.Turn, len(f.Positions), f.Maze.Width, f.Maze.Height))
}
