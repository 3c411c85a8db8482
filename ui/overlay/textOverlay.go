package overlay

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// TextOverlay is a bordered, dismissable block of text: the help screen and
// the last invariant report.
type TextOverlay struct {
	// Dismissed is set once any key was pressed.
	Dismissed bool
	// OnDismiss runs when the overlay is closed.
	OnDismiss func()

	title   string
	content string
	// alert draws a red border, used for a failed check.
	alert bool

	width int
}

func NewTextOverlay(title, content string) *TextOverlay {
	return &TextOverlay{title: title, content: content}
}

// HandleKeyPress closes the overlay on any key and reports that it closed.
func (t *TextOverlay) HandleKeyPress(msg tea.KeyMsg) bool {
	t.Dismissed = true
	if t.OnDismiss != nil {
		t.OnDismiss()
	}
	return true
}

func (t *TextOverlay) Render() string {
	borderColor := lipgloss.Color("62")
	if t.alert {
		borderColor = lipgloss.Color("#de613e")
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2)

	body := t.content
	if t.width > 0 {
		style = style.Width(t.width)
		// Border and padding take six columns.
		if inner := t.width - 6; inner > 10 {
			body = wordwrap.String(body, inner)
		}
	}
	if t.title != "" {
		body = lipgloss.NewStyle().Bold(true).Render(t.title) + "\n\n" + body
	}
	return style.Render(body)
}

func (t *TextOverlay) SetWidth(width int) {
	t.width = width
}

// SetAlert switches to the red border.
func (t *TextOverlay) SetAlert(alert bool) {
	t.alert = alert
}

// Place centers the overlay over a background of the given size.
func (t *TextOverlay) Place(width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, t.Render())
}
