package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ByteMirror/highlander/arena"
	"github.com/ByteMirror/highlander/config"
	"github.com/ByteMirror/highlander/log"
	"github.com/ByteMirror/highlander/report"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrInvariantViolated is returned by the check command when any sample
// disagrees with the closed form.
var ErrInvariantViolated = errors.New("health invariant violated")

// CheckOptions configures a headless run.
type CheckOptions struct {
	Simulation config.Simulation
	Duration   time.Duration
	Samples    int
	Format     report.Format
	Detailed   bool
	// Timeout bounds each barrier wait.
	Timeout time.Duration
}

// DefaultCheckOptions samples the simulation five times over two seconds.
func DefaultCheckOptions(sim config.Simulation) CheckOptions {
	return CheckOptions{
		Simulation: sim,
		Duration:   2 * time.Second,
		Samples:    5,
		Format:     report.FormatText,
		Timeout:    10 * time.Second,
	}
}

// CheckCommand creates the headless check command.
func CheckCommand() *cobra.Command {
	var (
		count, health, damage, samples int
		mode, format                   string
		duration                       time.Duration
		detailed                       bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a simulation without the UI and verify the health invariant",
		Long: `Start a population, let it fight, and pause it at evenly spaced points
to compare the total health with N*H - (M/2)*F. Exits non-zero when any
sample disagrees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			cfg := config.LoadConfig()
			opts := DefaultCheckOptions(cfg.Simulation)
			flags := cmd.Flags()
			if flags.Changed("count") {
				opts.Simulation.Count = count
			}
			if flags.Changed("health") {
				opts.Simulation.InitialHealth = health
			}
			if flags.Changed("damage") {
				opts.Simulation.Damage = damage
			}
			if flags.Changed("mode") {
				opts.Simulation.FightMode = mode
			}
			opts.Duration = duration
			opts.Samples = samples
			opts.Detailed = detailed

			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			opts.Format = f

			return RunCheck(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	defaults := DefaultCheckOptions(config.DefaultSimulation())
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of combatants (default from config)")
	cmd.Flags().IntVar(&health, "health", 0, "Initial health of every combatant (default from config)")
	cmd.Flags().IntVar(&damage, "damage", 0, "Damage dealt per fight (default from config)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Fight mode: ordered or naive (default from config)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", defaults.Duration, "How long the simulation runs")
	cmd.Flags().IntVarP(&samples, "samples", "s", defaults.Samples, "Number of invariant checks spread over the duration")
	cmd.Flags().StringVarP(&format, "format", "f", string(defaults.Format), "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Include every combatant in the reports")

	return cmd
}

// RunCheck starts a run with opts.Simulation, takes opts.Samples reports
// spread over opts.Duration and writes each one to out. The run is stopped
// before returning.
func RunCheck(ctx context.Context, out io.Writer, opts CheckOptions) error {
	if opts.Samples < 1 {
		return fmt.Errorf("samples must be at least 1, got %d", opts.Samples)
	}
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	m := arena.NewManager()
	if err := m.Start(ctx, opts.Simulation); err != nil {
		return err
	}
	defer func() {
		if err := m.Stop(); err != nil {
			log.WarningLog.Printf("stopping headless run: %v", err)
		}
	}()

	interval := opts.Duration / time.Duration(opts.Samples)
	violations := 0
	for i := 0; i < opts.Samples; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		r, err := sample(ctx, m, opts.Timeout)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i+1, err)
		}
		if !r.Holds {
			violations++
			log.ErrorLog.Printf("sample %d: %s", i+1, r.Verdict())
		}
		if err := report.Write(out, r, opts.Format, opts.Detailed); err != nil {
			return err
		}
	}

	if violations > 0 {
		return fmt.Errorf("%w in %d of %d samples", ErrInvariantViolated, violations, opts.Samples)
	}
	return nil
}

func sample(ctx context.Context, m *arena.Manager, timeout time.Duration) (*report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return report.CheckAndResume(ctx, m)
}
