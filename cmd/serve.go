package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ByteMirror/highlander/arena"
	"github.com/ByteMirror/highlander/config"
	"github.com/ByteMirror/highlander/log"
	"github.com/ByteMirror/highlander/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// ServeCommand creates the command that serves the control API.
func ServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and websocket control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(true)
			defer log.Close()

			cfg := config.LoadConfig()
			if addr != "" {
				cfg.ListenAddr = addr
			}
			gin.SetMode(gin.ReleaseMode)
			return Serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	return cmd
}

// Serve runs the HTTP server until ctx is done, then stops the simulation
// and shuts the server down.
func Serve(ctx context.Context, cfg *config.Config) error {
	m := arena.NewManager()
	defer func() {
		if err := m.Stop(); err != nil {
			log.WarningLog.Printf("stopping simulation on shutdown: %v", err)
		}
	}()

	s := server.New(ctx, cfg, m)
	go s.Broadcaster().Run(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.SetupRouter(s),
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoLog.Printf("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server on %s: %w", cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-s.Broadcaster().Done()
	log.InfoLog.Printf("server on %s stopped", cfg.ListenAddr)
	return nil
}
