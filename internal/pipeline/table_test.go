package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleEvaluation = `<argument_map>
  <topic>Should cities ban cars downtown?</topic>
  <p1_argument>Bans cut pollution and make streets safer.</p1_argument>
  <p2_argument>Bans hurt local businesses and commuters.</p2_argument>
</argument_map>
<direct_interactions>
  <interaction>
    <topic>Business impact</topic>
    <p1_position>Foot traffic rises after pedestrianization.</p1_position>
    <p2_position>Deliveries become harder.</p2_position>
    <outcome><verdict>P1</verdict><reason>Cited data went unanswered.</reason></outcome>
  </interaction>
  <interaction>
    <topic>Broken row</topic>
    <p1_position>Only one side.</p1_position>
  </interaction>
  <interaction>
    <topic>Commuting</topic>
    <p1_position>Transit can absorb demand.</p1_position>
    <p2_position>Transit is already full.</p2_position>
    <outcome>
      <verdict>P2</verdict>
      <reason>Capacity figures were conceded.</reason>
    </outcome>
  </interaction>
</direct_interactions>
<decisive_factors>Evidence on foot traffic.</decisive_factors>
<uncertainties>Long-term effects.</uncertainties>`

const sampleJudgment = `<winner>P1</winner>
<reasoning>P1's evidence was stronger.</reasoning>
<strength>7</strength>
<strengthening_advice>P2 should cite data.</strengthening_advice>
<final_argument_map>
  <topic>Car bans downtown</topic>
  <p1_argument>Bans improve health and trade.</p1_argument>
  <p2_argument>Bans burden commuters.</p2_argument>
  <verdict>P1</verdict>
  <reason>Unrebutted evidence.</reason>
</final_argument_map>`

func TestBuildTableFromEvaluation(t *testing.T) {
	got := BuildTable(sampleEvaluation, "")
	want := []TableRow{
		{
			Topic:     "Should cities ban cars downtown?",
			Position1: "Bans cut pollution and make streets safer.",
			Position2: "Bans hurt local businesses and commuters.",
			Outcome:   InitialSummaryOutcome,
		},
		{
			Topic:     "Business impact",
			Position1: "Foot traffic rises after pedestrianization.",
			Position2: "Deliveries become harder.",
			Outcome:   "P1: Cited data went unanswered.",
		},
		{
			Topic:     "Commuting",
			Position1: "Transit can absorb demand.",
			Position2: "Transit is already full.",
			Outcome:   "P2: Capacity figures were conceded.",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("BuildTable mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTableFinalMapIsExclusive(t *testing.T) {
	got := BuildTable(sampleEvaluation, sampleJudgment)
	want := []TableRow{{
		Topic:     "Car bans downtown",
		Position1: "Bans improve health and trade.",
		Position2: "Bans burden commuters.",
		Outcome:   "P1: Unrebutted evidence.",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("BuildTable mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTableBrokenFinalMapFallsBack(t *testing.T) {
	judgment := "<winner>P2</winner><final_argument_map><topic>x</topic></final_argument_map>"
	got := BuildTable(sampleEvaluation, judgment)
	if len(got) != 3 {
		t.Fatalf("expected evaluation rows after broken final map, got %d", len(got))
	}
	if got[0].Outcome != InitialSummaryOutcome {
		t.Fatalf("first row outcome = %q", got[0].Outcome)
	}
}

func TestBuildTableNothingParsed(t *testing.T) {
	tests := []struct {
		name       string
		evaluation string
		judgment   string
	}{
		{"empty", "", ""},
		{"free text", "The debate was close.", "P1 wins."},
		{"incomplete map", "<argument_map><topic>t</topic></argument_map>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildTable(tt.evaluation, tt.judgment); got != nil {
				t.Fatalf("expected nil, got %#v", got)
			}
		})
	}
}

func TestEvaluationSnippet(t *testing.T) {
	got, ok := evaluationSnippet(sampleEvaluation)
	if !ok {
		t.Fatal("expected a snippet")
	}
	want := "Topic: Should cities ban cars downtown?\n\n" +
		"P1's Argument: Bans cut pollution and make streets safer....\n\n" +
		"P2's Argument: Bans hurt local businesses and commuters....\n\n" +
		"Outcome: " + InitialSummaryOutcome
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snippet mismatch (-want +got):\n%s", diff)
	}

	raw, ok := evaluationSnippet("<argument_map>free text only</argument_map>")
	if !ok || raw != "free text only..." {
		t.Fatalf("fallback snippet = %q, %v", raw, ok)
	}

	if _, ok := evaluationSnippet("nothing"); ok {
		t.Fatal("expected no snippet")
	}
}
