package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/conductor-ai/conductor/internal/provider"
)

var waitTimeout time.Duration

// waitCmd polls a provider's availability until it comes up. Retry policy
// lives here at the caller boundary; the core never retries.
var waitCmd = &cobra.Command{
	Use:   "wait PROVIDER",
	Short: "Wait until a provider becomes available",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := loadOrchestrator()
		name := args[0]

		ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
		defer cancel()

		probe := func() error {
			for _, st := range orch.ProviderStatuses(ctx) {
				if st.Name == name {
					if st.Available {
						return nil
					}
					return fmt.Errorf("%w: %s", provider.ErrUnavailable, name)
				}
			}
			return backoff.Permanent(fmt.Errorf("unknown provider: %s", name))
		}

		policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
		if err := backoff.Retry(probe, policy); err != nil {
			return err
		}
		fmt.Printf("Provider %s is available\n", name)
		return nil
	},
}

func init() {
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 2*time.Minute, "Give up after this long")
}
