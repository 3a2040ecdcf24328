package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conductor-ai/conductor/internal/logging"
	"github.com/conductor-ai/conductor/internal/server"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the orchestrator over HTTP",
	Long: `Start a headless server exposing providers, sessions, and the compare
operation as a JSON API. With --watch the provider file is monitored and
the registry reloaded on change.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload providers when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.For("serve")
	orch := loadOrchestrator()

	cfg := server.DefaultConfig()
	cfg.Port = servePort
	srv := server.New(cfg, orch)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if serveWatch {
		go func() {
			if err := orch.Watch(ctx, configPath); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
