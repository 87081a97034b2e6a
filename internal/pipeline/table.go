// internal/pipeline/table.go
package pipeline

import (
	"fmt"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/tags"
)

// TableRow is one line of the argument table shown with a result.
type TableRow struct {
	Topic     string `json:"topic"`
	Position1 string `json:"p1_argument"`
	Position2 string `json:"p2_argument"`
	Outcome   string `json:"outcome"`
}

// InitialSummaryOutcome labels the row built from the evaluation's argument map.
const InitialSummaryOutcome = "Initial argument summary"

// TableParseFailure describes a table that produced no rows. It is logged, never returned.
type TableParseFailure struct {
	EvaluationLen int
	JudgmentLen   int
}

func (e *TableParseFailure) Error() string {
	return fmt.Sprintf("no argument maps parsed (evaluation %d bytes, judgment %d bytes)", e.EvaluationLen, e.JudgmentLen)
}

// BuildTable builds the argument table for a result. A judgment carrying a
// final argument map yields exactly that one row; otherwise rows come from
// the evaluation's argument map and its direct interactions. Rows that fail
// to parse are skipped. A nil result means nothing parsed and callers should
// show the raw text instead.
func BuildTable(evaluation, judgment string) []TableRow {
	if judgment != "" {
		if region, ok := tags.Lookup("final_argument_map", judgment); ok {
			row, err := finalMapRow(region)
			if err == nil {
				return []TableRow{row}
			}
			logging.LogError("table: failed to parse judgment argument map: %v", err)
		}
	}

	var rows []TableRow
	if region, ok := tags.Lookup("argument_map", evaluation); ok {
		row, err := argumentMapRow(region)
		if err != nil {
			logging.LogError("table: failed to parse evaluation argument map: %v", err)
		} else {
			rows = append(rows, row)
		}
	}

	if region, ok := tags.Lookup("direct_interactions", evaluation); ok {
		for _, interaction := range tags.ExtractAll("interaction", region) {
			row, err := interactionRow(interaction)
			if err != nil {
				logging.LogError("table: failed to parse interaction: %v\ntext was:\n%s", err, interaction)
				continue
			}
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		logging.LogError("table: %v", &TableParseFailure{EvaluationLen: len(evaluation), JudgmentLen: len(judgment)})
		return nil
	}
	return rows
}

func finalMapRow(region string) (TableRow, error) {
	v, err := extractFields(region, "topic", "p1_argument", "p2_argument", "verdict", "reason")
	if err != nil {
		return TableRow{}, err
	}
	return TableRow{Topic: v[0], Position1: v[1], Position2: v[2], Outcome: v[3] + ": " + v[4]}, nil
}

func argumentMapRow(region string) (TableRow, error) {
	v, err := extractFields(region, "topic", "p1_argument", "p2_argument")
	if err != nil {
		return TableRow{}, err
	}
	return TableRow{Topic: v[0], Position1: v[1], Position2: v[2], Outcome: InitialSummaryOutcome}, nil
}

func interactionRow(region string) (TableRow, error) {
	v, err := extractFields(region, "topic", "p1_position", "p2_position", "outcome")
	if err != nil {
		return TableRow{}, err
	}
	o, err := extractFields(v[3], "verdict", "reason")
	if err != nil {
		return TableRow{}, err
	}
	return TableRow{Topic: v[0], Position1: v[1], Position2: v[2], Outcome: o[0] + ": " + o[1]}, nil
}

// extractFields looks up every field in order without logging; the caller
// reports the row as a whole.
func extractFields(text string, fields ...string) ([]string, error) {
	out := make([]string, len(fields))
	for i, f := range fields {
		v, ok := tags.Lookup(f, text)
		if !ok {
			return nil, &tags.MissingFieldError{Field: f}
		}
		out[i] = v
	}
	return out, nil
}
