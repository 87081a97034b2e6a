// internal/cli/show_debate.go
package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/pipeline"
	"github.com/mwiater/adjudicator/internal/store"
)

var showDebateWidth int

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	tableHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	tableCell    = lipgloss.NewStyle().Padding(0, 1)
)

// showDebateCmd renders a saved debate.
var showDebateCmd = &cobra.Command{
	Use:   "debate <id>",
	Short: "Show a saved debate with its argument table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid debate id %q", args[0])
		}
		a, err := newApp(cmd.Context(), getConfig(), appNeeds{})
		if err != nil {
			return err
		}
		defer a.close()

		d, err := a.store.GetDebate(cmd.Context(), id)
		if err != nil {
			return err
		}
		return renderDebate(stdout, d, showDebateWidth)
	},
}

func init() {
	showDebateCmd.Flags().IntVar(&showDebateWidth, "width", 100, "wrap width for the table and text")
	showCmd.AddCommand(showDebateCmd)
}

// renderDebate writes the title block, the argument table and the formatted
// evaluation and judgment. When the table cannot be built the raw evaluation
// and judgment are shown instead.
func renderDebate(w io.Writer, d store.Debate, width int) error {
	rc := pipeline.RunContext{Winner: d.Winner, Participant1: d.Participant1, Participant2: d.Participant2}

	fmt.Fprintln(w, headingStyle.Render(d.Title))
	fmt.Fprintf(w, "%s vs %s\n", d.Participant1, d.Participant2)
	fmt.Fprintln(w, faintStyle.Render(fmt.Sprintf("debate %d, %s", d.ID, d.CreatedAt.Local().Format("2006-01-02 15:04"))))
	fmt.Fprintf(w, "Winner: %s\n", successLine.Sprint(rc.WinnerName()))
	fmt.Fprintf(w, "Ratings: evaluation %+d, judgment %+d\n\n", d.EvaluationScore(), d.JudgmentScore())

	rows := pipeline.BuildTable(d.Evaluation, d.Judgment)
	if rows == nil {
		noticeLine.Fprintln(w, "The argument table could not be parsed; showing the raw output.")
		fmt.Fprintf(w, "\n%s\n\n%s\n\n%s\n", headingStyle.Render("Evaluation"), d.Evaluation, headingStyle.Render("Judgment"))
		fmt.Fprintln(w, d.Judgment)
		return nil
	}
	fmt.Fprintln(w, argumentTable(rows, d.Participant1, d.Participant2, width))

	md, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	for _, section := range []struct{ title, body string }{
		{"Evaluation", d.FormattedEvaluation},
		{"Judgment", d.FormattedJudgment},
	} {
		if section.body == "" {
			continue
		}
		out, err := md.Render("## " + section.title + "\n\n" + section.body)
		if err != nil {
			logging.LogError("render %s markdown for debate %d: %v", section.title, d.ID, err)
			out = section.body + "\n"
		}
		fmt.Fprint(w, out)
	}
	return nil
}

func argumentTable(rows []pipeline.TableRow, p1, p2 string, width int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Topic", p1, p2, "Outcome").
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeader
			}
			return tableCell
		})
	for _, r := range rows {
		t.Row(r.Topic, r.Position1, r.Position2, r.Outcome)
	}
	return t.Render()
}
