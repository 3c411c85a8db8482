package ui

import "github.com/charmbracelet/lipgloss"

var titleStyle = lipgloss.NewStyle().
	Background(lipgloss.Color("216")).
	Foreground(lipgloss.Color("230")).
	Padding(0, 1)

var labelStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#7A7474", Dark: "#9C9494"})

var valueStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"})

var runningStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#51bd73", Dark: "#51bd73"})

var pausedStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F0A868"))

var stoppedStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#888888"})

var holdsStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#51bd73", Dark: "#51bd73"})

var brokenStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#de613e"))

// Health cells are colored by the share of initial health left.
var (
	healthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#51bd73"))
	woundedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0A868"))
	dyingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#de613e"))
	deadStyle    = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#b0b0b0", Dark: "#555555"}).
			Strikethrough(true)
)

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.AdaptiveColor{Light: "#b0b0b0", Dark: "#444444"}).
	Padding(0, 1)
