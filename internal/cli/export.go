// internal/cli/export.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var exportDir string

// now is replaceable in tests.
var now = time.Now

// exportCmd writes every debate and audited model call to JSON files.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export debates and model interactions to JSON",
	Long:  `Write all saved debates and every audited model call to timestamped JSON files in the export directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), getConfig(), appNeeds{})
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.store.Export(cmd.Context(), exportDir, now())
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		successLine.Fprintf(stdout, "Exported %d debates to %s\n", res.Debates, res.DebatesPath)
		successLine.Fprintf(stdout, "Exported %d interactions to %s\n", res.Interactions, res.InteractionsPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "exports", "directory for the export files")
	rootCmd.AddCommand(exportCmd)
}
