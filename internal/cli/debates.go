// internal/cli/debates.go
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/adjudicator/internal/pipeline"
	"github.com/mwiater/adjudicator/internal/util"
)

var debatesLimit int

// debatesCmd groups commands over saved debates.
var debatesCmd = &cobra.Command{
	Use:   "debates",
	Short: "Group commands for saved debates",
}

// debatesListCmd lists the most recent debates.
var debatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent debates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), getConfig(), appNeeds{})
		if err != nil {
			return err
		}
		defer a.close()

		debates, err := a.store.RecentDebates(cmd.Context(), debatesLimit)
		if err != nil {
			return err
		}
		if len(debates) == 0 {
			noticeLine.Fprintln(stdout, "No debates saved yet.")
			return nil
		}
		// --debug dumps the full records.
		if getConfig().Debug {
			pp.Fprintln(stdout, debates)
			return nil
		}

		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tTITLE\tWINNER\tEVAL\tJUDG")
		for _, d := range debates {
			rc := pipeline.RunContext{Winner: d.Winner, Participant1: d.Participant1, Participant2: d.Participant2}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%+d\t%+d\n",
				d.ID,
				d.CreatedAt.Local().Format("2006-01-02 15:04"),
				util.TruncateRunes(d.Title, 48),
				rc.WinnerName(),
				d.EvaluationScore(),
				d.JudgmentScore(),
			)
		}
		return tw.Flush()
	},
}

func init() {
	debatesListCmd.Flags().IntVarP(&debatesLimit, "limit", "n", 5, "number of debates to list")
	debatesCmd.AddCommand(debatesListCmd)
	rootCmd.AddCommand(debatesCmd)
}
