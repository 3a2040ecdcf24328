// Package commands provides the CLI commands for conductor.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/conductor-ai/conductor/internal/config"
	"github.com/conductor-ai/conductor/internal/logging"
	"github.com/conductor-ai/conductor/internal/orchestrator"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Conductor - multiplexed sessions across AI providers",
	Long: `Conductor manages conversational sessions against several AI backends
(CLI subprocesses, local model daemons, remote HTTP APIs) behind one
session abstraction.

Run 'conductor providers' to see configured backends, 'conductor start'
to open a session, or 'conductor serve' to expose the HTTP API.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logging.Init(logging.Config{Level: logging.ParseLevel(logLevel)})
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ai_providers.json", "Provider configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("conductor %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(stopAllCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadOrchestrator builds an orchestrator from the configured provider
// file. Invalid records are reported on stderr but do not abort startup.
func loadOrchestrator() *orchestrator.Orchestrator {
	cfgs, errs := config.Load(configPath)
	log := logging.For("cli")
	for _, err := range errs {
		log.Warn().Err(err).Msg("config")
	}
	return orchestrator.New(cfgs)
}
