package overlay

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)
	inputTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			MarginBottom(1)
	inputHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
	inputErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#de613e"))
)

// SingleLineInputOverlay is a one-line text prompt. The caller validates the
// submitted value and may keep the overlay open with SetError.
type SingleLineInputOverlay struct {
	textinput textinput.Model
	Title     string
	hint      string
	err       string
	submitted bool
	canceled  bool
	width     int
}

// NewSingleLineInputOverlay creates a focused prompt holding initialValue.
func NewSingleLineInputOverlay(title, hint, initialValue string) *SingleLineInputOverlay {
	ti := textinput.New()
	ti.SetValue(initialValue)
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	return &SingleLineInputOverlay{
		textinput: ti,
		Title:     title,
		hint:      hint,
	}
}

func (s *SingleLineInputOverlay) SetWidth(width int) {
	s.width = width
	// Border and padding.
	s.textinput.Width = max(width-8, 10)
}

// HandleKeyPress processes a key press and returns true when the overlay
// should be closed: on Esc, or on Enter when no error is set afterwards.
func (s *SingleLineInputOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyEsc:
		s.canceled = true
		return true
	case tea.KeyEnter:
		s.submitted = true
		s.err = ""
		return true
	default:
		s.err = ""
		s.textinput, _ = s.textinput.Update(msg)
		return false
	}
}

func (s *SingleLineInputOverlay) Value() string {
	return s.textinput.Value()
}

func (s *SingleLineInputOverlay) IsSubmitted() bool {
	return s.submitted
}

func (s *SingleLineInputOverlay) IsCanceled() bool {
	return s.canceled
}

// SetError shows msg under the input and re-arms the prompt.
func (s *SingleLineInputOverlay) SetError(msg string) {
	s.err = msg
	s.submitted = false
}

func (s *SingleLineInputOverlay) Render() string {
	content := inputTitleStyle.Render(s.Title) + "\n"
	content += s.textinput.View() + "\n"
	if s.hint != "" {
		content += inputHelpStyle.Render(s.hint) + "\n"
	}
	if s.err != "" {
		content += inputErrorStyle.Render(s.err) + "\n"
	}
	content += inputHelpStyle.Render("(Enter to submit, Esc to cancel)")

	style := inputBorderStyle
	if s.width > 0 {
		style = style.Width(s.width)
	}
	return style.Render(content)
}

// Place centers the prompt in a width x height area.
func (s *SingleLineInputOverlay) Place(width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s.Render())
}
