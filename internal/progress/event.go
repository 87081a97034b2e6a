// internal/progress/event.go
// Package progress carries pipeline progress events from a background run to
// a live client stream.
package progress

// Stage names used in events and frames.
const (
	StageAnalyzing          = "analyzing"
	StageAnalysis           = "analysis"
	StageTitleExtracted     = "title_extracted"
	StageParticipants       = "participants"
	StageEvaluation         = "evaluation"
	StageEvaluationProgress = "evaluation_progress"
	StageJudgment           = "judgment"
	StageJudgmentProgress   = "judgment_progress"
	StageFormatting         = "formatting"
	StageProcessingComplete = "processing_complete"
	StageProcessing         = "processing"
	StageRetrying           = "retrying"
	StageCompleted          = "completed"
	StageComplete           = "complete"
	StageError              = "error"
)

// Event is one unit of progress reported out of a run.
type Event struct {
	Stage   string
	Percent int
	Message string

	// ContentType keys ContentSnippet in the client's snippet set.
	ContentType    string
	ContentSnippet string

	// Attempt is set on retrying events.
	Attempt int

	// Set on the title_extracted event.
	Title        string
	Participant1 string
	Participant2 string
	Summary1     string
	Summary2     string
}

// Emitter receives events. Implementations must be safe to call from the run's goroutine.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})

// Recorder collects events in memory.
type Recorder struct {
	Events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Stages returns the stage of every recorded event, in order.
func (r *Recorder) Stages() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Stage)
	}
	return out
}
