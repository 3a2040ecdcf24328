package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start PROVIDER",
	Short: "Start a session with a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		id, err := orch.StartSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Started session: %s\n", id)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send SESSION_ID MESSAGE",
	Short: "Send a message to a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		reply, err := orch.SendMessage(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Response: %s\n", reply)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop SESSION_ID",
	Short: "Stop a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		if orch.StopSession(cmd.Context(), args[0]) {
			fmt.Printf("Stopped session: %s\n", args[0])
		} else {
			fmt.Printf("Failed to stop session: %s\n", args[0])
		}
		return nil
	},
}

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		fmt.Printf("Stopped %d sessions\n", orch.StopAllSessions(cmd.Context()))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history SESSION_ID",
	Short: "Print a session's conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		turns, err := orch.SessionHistory(args[0])
		if err != nil {
			return err
		}
		for _, turn := range turns {
			fmt.Printf("%s [%s]: %s\n", turn.Timestamp.Format(time.RFC3339), turn.Role, turn.Content)
		}
		return nil
	},
}
