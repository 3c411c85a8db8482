package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ByteMirror/highlander/arena"
	"github.com/ByteMirror/highlander/concurrency"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// cellWidth is the width of one combatant cell in the grid, gap included.
const cellWidth = 20

// Status is everything the status panel shows. It is filled from the manager
// on every refresh tick.
type Status struct {
	RunID   string
	Running bool
	State   concurrency.PauseState
	Active  int
	Parked  int

	// Mode and Count are what the next start will use.
	Mode          string
	Count         int
	InitialHealth int
	Damage        int

	Fights     int64
	Expected   int64
	Total      int64
	Alive      int
	Metrics    arena.Metrics
	Combatants []arena.CombatantStatus
}

// StatusPanel renders the run header and the combatant grid.
type StatusPanel struct {
	width, height int
	status        Status
	showDetails   bool
	spinner       *spinner.Model
}

func NewStatusPanel(s *spinner.Model) *StatusPanel {
	return &StatusPanel{spinner: s, showDetails: true}
}

func (p *StatusPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

func (p *StatusPanel) SetStatus(status Status) {
	p.status = status
}

// ToggleDetails shows or hides the combatant grid.
func (p *StatusPanel) ToggleDetails() {
	p.showDetails = !p.showDetails
}

func (p *StatusPanel) stateLine() string {
	s := p.status
	switch {
	case s.RunID == "":
		return stoppedStyle.Render("idle")
	case !s.Running:
		return stoppedStyle.Render("stopped")
	case s.State == concurrency.StateQuiesced:
		return pausedStyle.Render(fmt.Sprintf("paused, %d/%d parked", s.Parked, s.Active))
	case s.State == concurrency.StatePauseRequested:
		return pausedStyle.Render(fmt.Sprintf("%s pausing, %d/%d parked", p.spinner.View(), s.Parked, s.Active))
	default:
		return runningStyle.Render(fmt.Sprintf("%s running, %d workers", p.spinner.View(), s.Active))
	}
}

func (p *StatusPanel) header() string {
	s := p.status
	field := func(label string, value any) string {
		return labelStyle.Render(label) + " " + valueStyle.Render(fmt.Sprint(value))
	}

	runID := "-"
	if s.RunID != "" {
		runID = s.RunID[:8]
	}

	lines := []string{
		titleStyle.Render("Highlander") + "  " + p.stateLine(),
		strings.Join([]string{
			field("run", runID),
			field("mode", s.Mode),
			field("count", s.Count),
			field("health", s.InitialHealth),
			field("damage", s.Damage),
		}, "   "),
		strings.Join([]string{
			field("fights", s.Fights),
			field("alive", s.Alive),
			field("total", s.Total),
			field("expected", s.Expected),
		}, "   "),
		strings.Join([]string{
			field("fights/s", fmt.Sprintf("%.0f", s.Metrics.FightsPerSecond)),
			field("lock timeouts", s.Metrics.LockTimeouts),
			field("checks", s.Metrics.Barriers),
			field("barrier p95", s.Metrics.BarrierP95.Round(time.Microsecond)),
			field("barrier max", s.Metrics.BarrierMax.Round(time.Microsecond)),
		}, "   "),
	}
	return strings.Join(lines, "\n")
}

// healthStyle colors a cell by the share of initial health left.
func healthStyle(c arena.CombatantStatus, initial int) lipgloss.Style {
	switch {
	case !c.Alive:
		return deadStyle
	case initial <= 0 || c.Health*2 >= int64(initial):
		return healthyStyle
	case c.Health*4 >= int64(initial):
		return woundedStyle
	default:
		return dyingStyle
	}
}

func (p *StatusPanel) grid(maxRows int) string {
	combatants := p.status.Combatants
	if len(combatants) == 0 || maxRows <= 0 {
		return ""
	}

	// Border and padding take four columns.
	columns := (p.width - 4) / cellWidth
	if columns < 1 {
		columns = 1
	}

	capacity := columns * maxRows
	hidden := 0
	if len(combatants) > capacity {
		// Keep the last row for the overflow note.
		capacity -= columns
		if capacity < 0 {
			capacity = 0
		}
		hidden = len(combatants) - capacity
		combatants = combatants[:capacity]
	}

	var rows []string
	var row strings.Builder
	for i, c := range combatants {
		name := runewidth.Truncate(c.ID, cellWidth-8, "…")
		cell := fmt.Sprintf("%-*s %5d", cellWidth-8, name, c.Health)
		row.WriteString(healthStyle(c, p.status.InitialHealth).Render(cell))
		row.WriteString("  ")
		if (i+1)%columns == 0 {
			rows = append(rows, row.String())
			row.Reset()
		}
	}
	if row.Len() > 0 {
		rows = append(rows, row.String())
	}
	if hidden > 0 {
		rows = append(rows, labelStyle.Render(fmt.Sprintf("+%d more", hidden)))
	}
	return strings.Join(rows, "\n")
}

func (p *StatusPanel) String() string {
	header := p.header()
	if !p.showDetails {
		return header
	}

	// Header lines, a blank line and the panel border.
	maxRows := p.height - lipgloss.Height(header) - 3
	grid := p.grid(maxRows)
	if grid == "" {
		return header
	}
	return header + "\n\n" + grid
}

// View renders the panel inside its border.
func (p *StatusPanel) View() string {
	width := p.width - 2
	if width < 0 {
		width = 0
	}
	return panelStyle.Width(width).Render(p.String())
}
