package main

import (
	"errors"
	"testing"

	"github.com/mwiater/adjudicator/internal/metrics"
)

func TestMainWiring(t *testing.T) {
	origExecute, origMetrics, origExit := executeCmd, getMetrics, exit
	t.Cleanup(func() {
		executeCmd, getMetrics, exit = origExecute, origMetrics, origExit
	})

	tests := []struct {
		name     string
		execErr  error
		wantExit int
	}{
		{name: "success", wantExit: -1},
		{name: "failure", execErr: errors.New("boom"), wantExit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var executed, metricsCalled bool
			code := -1
			executeCmd = func() error {
				executed = true
				return tt.execErr
			}
			getMetrics = func() *metrics.Aggregator {
				metricsCalled = true
				return metrics.NewAggregator("")
			}
			exit = func(c int) { code = c }

			main()

			if !executed || !metricsCalled {
				t.Fatalf("expected execute and metrics flush, got execute=%v metrics=%v", executed, metricsCalled)
			}
			if code != tt.wantExit {
				t.Fatalf("exit code = %d, want %d", code, tt.wantExit)
			}
		})
	}
}
