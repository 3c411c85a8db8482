package app

import (
	"github.com/ByteMirror/highlander/keys"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#36CFC9"))
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFCC00"))
	descStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#FFFFFF"})
)

func helpLine(name keys.KeyName, desc string) string {
	return keyStyle.Render(keys.GlobalkeyBindings[name].Help().Key) + descStyle.Render("    - "+desc)
}

func helpText() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"Combatants fight random opponents on their own goroutines. Every fight moves",
		"damage from the loser and half of it to the winner, so a quiesced population",
		"must always total N*H - (M/2)*F.",
		"",
		headerStyle.Render("Run:"),
		helpLine(keys.KeyStart, "Start a new run, stopping the current one"),
		helpLine(keys.KeyCheck, "Pause, wait for every worker to park and check the invariant"),
		helpLine(keys.KeyPause, "Pause without waiting"),
		helpLine(keys.KeyResume, "Resume a paused run"),
		helpLine(keys.KeyStop, "Stop the run"),
		"",
		headerStyle.Render("Next run:"),
		helpLine(keys.KeyMode, "Toggle ordered and naive fights"),
		helpLine(keys.KeyMore, "One more combatant"),
		helpLine(keys.KeyFewer, "One fewer combatant"),
		helpLine(keys.KeyEdit, "Set count, health and damage"),
		"",
		headerStyle.Render("Other:"),
		helpLine(keys.KeyCopy, "Copy the last report as YAML"),
		helpLine(keys.KeyDetails, "Show or hide the combatant grid"),
		helpLine(keys.KeyQuit, "Quit"),
	)
}
