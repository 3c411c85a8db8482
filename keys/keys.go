package keys

import (
	"github.com/charmbracelet/bubbles/key"
)

type KeyName int

const (
	KeyStart KeyName = iota
	KeyCheck         // Pause, wait for every worker and check the invariant.
	KeyPause         // Pause without waiting.
	KeyResume
	KeyStop
	KeyMode // Toggle between ordered and naive fights for the next start.
	KeyMore
	KeyFewer
	KeyEdit // Edit count, health and damage for the next start.
	KeyCopy
	KeyDetails // Toggle the per-combatant table.
	KeyHelp
	KeyQuit
)

// GlobalKeyStringsMap is a global, immutable map string to keybinding.
var GlobalKeyStringsMap = map[string]KeyName{
	"s":      KeyStart,
	"p":      KeyCheck,
	"P":      KeyPause,
	"r":      KeyResume,
	"x":      KeyStop,
	"m":      KeyMode,
	"+":      KeyMore,
	"=":      KeyMore,
	"-":      KeyFewer,
	"e":      KeyEdit,
	"y":      KeyCopy,
	"d":      KeyDetails,
	"?":      KeyHelp,
	"q":      KeyQuit,
	"ctrl+c": KeyQuit,
}

// GlobalkeyBindings is a global, immutable map of KeyName tot keybinding.
var GlobalkeyBindings = map[KeyName]key.Binding{
	KeyStart: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start"),
	),
	KeyCheck: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause & check"),
	),
	KeyPause: key.NewBinding(
		key.WithKeys("P"),
		key.WithHelp("P", "pause"),
	),
	KeyResume: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "resume"),
	),
	KeyStop: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "stop"),
	),
	KeyMode: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "fight mode"),
	),
	KeyMore: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "more"),
	),
	KeyFewer: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "fewer"),
	),
	KeyEdit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	KeyCopy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy report"),
	),
	KeyDetails: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "details"),
	),
	KeyHelp: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	KeyQuit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
