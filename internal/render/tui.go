// ABOUTME: Bubbletea program showing the live maze as avatars explore it
// ABOUTME: Quitting the view leaves the run itself untouched

package render

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type frameMsg struct{ frame Frame }

type framesClosedMsg struct{}

// waitForFrame blocks until a frame arrives on the channel.
func waitForFrame(frames <-chan Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg{frame: f}
	}
}

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// Model is the maze viewer's bubbletea model.
type Model struct {
	frames <-chan Frame
	frame  Frame
	seen   bool
	ended  bool
}

// NewModel returns a viewer reading from frames.
func NewModel(frames <-chan Frame) Model {
	return Model{frames: frames}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case frameMsg:
		m.frame = msg.frame
		m.seen = true
		return m, waitForFrame(m.frames)
	case framesClosedMsg:
		m.ended = true
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.seen {
		return "waiting for the first turn...\n" + helpStyle.Render("q: close view") + "\n"
	}

	help := "q: close view"
	if m.ended {
		help = "run finished  " + help
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		Caption(m.frame),
		Draw(m.frame),
		helpStyle.Render(help),
	) + "\n"
}

// RunTUI shows frames until the user quits or ctx is cancelled.
func RunTUI(ctx context.Context, frames <-chan Frame, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(NewModel(frames), opts...)

	_, err := program.Run()
	if err != nil && ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
