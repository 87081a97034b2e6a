// internal/pipeline/executor.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/progress"
)

// StageError wraps the failure of a named stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Executor runs stages strictly in order, pausing between them.
type Executor struct {
	stages []Stage
	delay  time.Duration
}

// NewExecutor returns an Executor over stages with delay between consecutive stages.
func NewExecutor(stages []Stage, delay time.Duration) *Executor {
	return &Executor{stages: stages, delay: delay}
}

// Run executes every stage against rc and returns the accumulated context.
// The first failing stage aborts the run: one error event is emitted and
// the failure is returned as a *StageError with no partial context.
func (x *Executor) Run(ctx context.Context, rc RunContext) (RunContext, error) {
	for i, stage := range x.stages {
		if i > 0 && x.delay > 0 {
			if err := sleep(ctx, x.delay); err != nil {
				return RunContext{}, x.fail(rc, stage, err)
			}
		}

		start := time.Now()
		delta, err := stage.Run(ctx, rc)
		if err != nil {
			return RunContext{}, x.fail(rc, stage, err)
		}
		next, err := rc.Apply(delta)
		if err != nil {
			return RunContext{}, x.fail(rc, stage, err)
		}
		rc = next
		logging.LogEvent("run %s: %s finished in %s", rc.RunID, stage.Name(), time.Since(start).Round(time.Millisecond))
	}
	return rc, nil
}

func (x *Executor) fail(rc RunContext, stage Stage, err error) error {
	logging.LogError("run %s: error in pipeline stage %s: %v", rc.RunID, stage.Name(), err)
	rc.emit(progress.Event{
		Stage:   progress.StageError,
		Percent: 0,
		Message: fmt.Sprintf("Error in %s: %v", stage.Name(), err),
	})
	return &StageError{Stage: stage.Name(), Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// New returns an Executor over the standard stage sequence.
func New(deps Deps, delay time.Duration) *Executor {
	return NewExecutor(Stages(deps), delay)
}
