package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and their availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		for _, st := range orch.ProviderStatuses(cmd.Context()) {
			state := "unavailable"
			if st.Available {
				state = "available"
			}
			fmt.Printf("%-16s %-24s %s\n", st.Name, st.Kind, state)
		}
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		infos := orch.ListSessions()
		if len(infos) == 0 {
			fmt.Println("No active sessions")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %-16s %-12s created %s  %d messages\n",
				info.SessionID, info.Provider, info.Status,
				info.CreatedAt.Format(time.RFC3339), info.MessageCount)
		}
		return nil
	},
}
