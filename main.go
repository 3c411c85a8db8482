package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ByteMirror/highlander/app"
	"github.com/ByteMirror/highlander/cmd"
	"github.com/ByteMirror/highlander/config"
	"github.com/ByteMirror/highlander/log"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/term"
)

var (
	version = "1.0.0"
	rootCmd = &cobra.Command{
		Use:   "highlander",
		Short: "Highlander - a concurrent combat simulator with a stop-the-world invariant check",
		RunE: func(c *cobra.Command, args []string) error {
			// Without a terminal there is nothing to draw on, so run the
			// headless check instead.
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return cmd.CheckCommand().RunE(c, args)
			}

			log.Initialize(false)
			defer log.Close()

			return app.Run(c.Context(), config.LoadConfig())
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "Print debug information like config paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			configDir, err := config.GetConfigDir()
			if err != nil {
				return fmt.Errorf("failed to get config directory: %w", err)
			}
			configJson, _ := sonnet.MarshalIndent(cfg, "", "  ")

			fmt.Printf("Config: %s\n%s\n", filepath.Join(configDir, config.ConfigFileName), configJson)
			fmt.Printf("Log file: %s\n", log.FileName())

			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of highlander",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("highlander version %s\n", version)
		},
	}
)

func init() {
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cmd.CheckCommand())
	rootCmd.AddCommand(cmd.ServeCommand())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
