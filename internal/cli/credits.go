// internal/cli/credits.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// creditsCmd groups commands over the credit ledger.
var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Group commands for the per-address credit ledger",
}

// creditsResetCmd clears every address's usage.
var creditsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset credit usage for every address",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), getConfig(), appNeeds{ledger: true})
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.ledger.Reset(cmd.Context())
		if err != nil {
			return fmt.Errorf("reset credits: %w", err)
		}
		successLine.Fprintf(stdout, "Reset credit usage for %d addresses (%s backend)\n", n, getConfig().CreditSettings().Backend)
		return nil
	},
}

func init() {
	creditsCmd.AddCommand(creditsResetCmd)
	rootCmd.AddCommand(creditsCmd)
}
