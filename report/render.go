package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sugawarayuuta/sonnet"
	"gopkg.in/yaml.v3"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or yaml)", s)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("216"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#7A7474", Dark: "#9C9494"}).Width(16)
	holdsStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#51bd73", Dark: "#51bd73"})
	brokenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#de613e"))
	deadStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#888888"})
)

// Text renders the report for a terminal. detailed adds one row per combatant.
func Text(r *Report, detailed bool) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Invariant check"))
	b.WriteString("\n")
	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	line("run", r.RunID)
	line("taken at", r.TakenAt.Format("15:04:05.000"))
	line("strategy", r.Strategy)
	line("population", fmt.Sprintf("%d (%d alive)", r.Population, r.Alive))
	line("fights", fmt.Sprint(r.Fights))
	line("expected", r.Formula())
	line("actual", fmt.Sprint(r.Actual))

	verdict := holdsStyle.Render(r.Verdict())
	if !r.Holds {
		verdict = brokenStyle.Render(r.Verdict())
	}
	b.WriteString(verdict)
	b.WriteString("\n")

	if detailed && len(r.Combatants) > 0 {
		b.WriteString("\n")
		for _, c := range r.Combatants {
			row := fmt.Sprintf("%-16s %6d", c.ID, c.Health)
			if !c.Alive {
				row = deadStyle.Render(row + "  dead")
			}
			b.WriteString(row)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// JSON encodes the report, indented.
func JSON(r *Report) ([]byte, error) {
	data, err := sonnet.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// YAML encodes the report.
func YAML(r *Report) ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// Write renders r in format f to w.
func Write(w io.Writer, r *Report, f Format, detailed bool) error {
	if !detailed {
		r = r.Summary()
	}

	var data []byte
	var err error
	switch f {
	case FormatJSON:
		data, err = JSON(r)
		data = append(data, '\n')
	case FormatYAML:
		data, err = YAML(r)
	default:
		data = []byte(Text(r, detailed))
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
