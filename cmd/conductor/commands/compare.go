package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var compareProviders []string

var compareCmd = &cobra.Command{
	Use:   "compare MESSAGE",
	Short: "Send one message to several providers and compare replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()

		names := compareProviders
		if len(names) == 0 {
			names = orch.ListProviders()
		}
		if len(names) == 0 {
			return fmt.Errorf("no providers configured")
		}

		results := orch.Compare(cmd.Context(), args[0], names)

		sorted := make([]string, 0, len(results))
		for name := range results {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)

		for _, name := range sorted {
			res := results[name]
			fmt.Printf("=== %s ===\n", name)
			if res.Error != "" {
				fmt.Printf("Error: %s\n\n", res.Error)
				continue
			}
			fmt.Printf("%s\n\n", strings.TrimSpace(res.Response))
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().StringSliceVarP(&compareProviders, "providers", "p", nil, "Providers to compare (default: all)")
}
