package ui

import (
	"strings"

	"github.com/ByteMirror/highlander/keys"

	"github.com/charmbracelet/lipgloss"
)

var keyStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#655F5F",
	Dark:  "#7F7A7A",
})

var descStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#7A7474",
	Dark:  "#9C9494",
})

var sepStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
	Light: "#DDDADA",
	Dark:  "#3C3C3C",
})

var actionGroupStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("216"))

var separator = " • "
var verticalSeparator = " │ "

var menuStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#7EC8D8"))

// MenuState represents different states the menu can be in
type MenuState int

const (
	// StateIdle means no run is active.
	StateIdle MenuState = iota
	StateRunning
	StatePaused
	// StateBusy means a check or stop is in flight and only quitting makes sense.
	StateBusy
)

// menuGroup is a logical group of hotkeys rendered together, separated from
// other groups by a vertical bar.
type menuGroup struct {
	keys     []keys.KeyName
	isAction bool // action groups get a distinct highlight color
}

// menuRow is one horizontal line in the footer, composed of one or more groups.
type menuRow []menuGroup

type Menu struct {
	rows          []menuRow
	height, width int
	state         MenuState

	// keyDown is the key which is pressed. The default is -1.
	keyDown keys.KeyName
}

func NewMenu() *Menu {
	m := &Menu{
		state:   StateIdle,
		keyDown: -1,
	}
	m.updateOptions()
	return m
}

func (m *Menu) Keydown(name keys.KeyName) {
	m.keyDown = name
}

func (m *Menu) ClearKeydown() {
	m.keyDown = -1
}

// SetState updates the menu state and options accordingly
func (m *Menu) SetState(state MenuState) {
	if m.state == state {
		return
	}
	m.state = state
	m.updateOptions()
}

func (m *Menu) State() MenuState {
	return m.state
}

func (m *Menu) updateOptions() {
	setup := menuGroup{keys: []keys.KeyName{keys.KeyMode, keys.KeyMore, keys.KeyFewer, keys.KeyEdit}}
	system := menuGroup{keys: []keys.KeyName{keys.KeyDetails, keys.KeyHelp, keys.KeyQuit}}

	switch m.state {
	case StateIdle:
		m.rows = []menuRow{
			{menuGroup{keys: []keys.KeyName{keys.KeyStart}, isAction: true}, setup},
			{menuGroup{keys: []keys.KeyName{keys.KeyCopy}}, system},
		}
	case StateRunning:
		m.rows = []menuRow{
			{
				menuGroup{keys: []keys.KeyName{keys.KeyCheck, keys.KeyPause, keys.KeyStop}, isAction: true},
				menuGroup{keys: []keys.KeyName{keys.KeyStart}},
			},
			{setup, menuGroup{keys: []keys.KeyName{keys.KeyCopy}}, system},
		}
	case StatePaused:
		m.rows = []menuRow{
			{
				menuGroup{keys: []keys.KeyName{keys.KeyResume, keys.KeyCheck, keys.KeyStop}, isAction: true},
				menuGroup{keys: []keys.KeyName{keys.KeyStart}},
			},
			{setup, menuGroup{keys: []keys.KeyName{keys.KeyCopy}}, system},
		}
	case StateBusy:
		m.rows = []menuRow{
			{menuGroup{keys: []keys.KeyName{keys.KeyQuit}}},
		}
	}
}

// SetSize sets the width of the window. The menu will be centered horizontally within this width.
func (m *Menu) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// renderRow renders a single row of grouped hotkeys into a styled string.
func (m *Menu) renderRow(row menuRow) string {
	var s strings.Builder

	for gi, group := range row {
		for ki, k := range group.keys {
			binding := keys.GlobalkeyBindings[k]

			localActionStyle := actionGroupStyle
			localKeyStyle := keyStyle
			localDescStyle := descStyle
			if m.keyDown == k {
				localActionStyle = localActionStyle.Underline(true)
				localKeyStyle = localKeyStyle.Underline(true)
				localDescStyle = localDescStyle.Underline(true)
			}

			if group.isAction {
				s.WriteString(localActionStyle.Render(binding.Help().Key))
				s.WriteString(" ")
				s.WriteString(localActionStyle.Render(binding.Help().Desc))
			} else {
				s.WriteString(localKeyStyle.Render(binding.Help().Key))
				s.WriteString(" ")
				s.WriteString(localDescStyle.Render(binding.Help().Desc))
			}

			if ki < len(group.keys)-1 {
				s.WriteString(sepStyle.Render(separator))
			}
		}

		if gi < len(row)-1 {
			s.WriteString(sepStyle.Render(verticalSeparator))
		}
	}

	return s.String()
}

func (m *Menu) String() string {
	var renderedRows []string
	for _, row := range m.rows {
		renderedRows = append(renderedRows, menuStyle.Render(m.renderRow(row)))
	}

	joined := lipgloss.JoinVertical(lipgloss.Center, renderedRows...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, joined)
}
