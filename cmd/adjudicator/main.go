// cmd/adjudicator/main.go
package main

import (
	"fmt"
	"os"

	cmd "github.com/mwiater/adjudicator/internal/cli"
	"github.com/mwiater/adjudicator/internal/metrics"
)

// Hooks replaced in tests.
var (
	executeCmd = cmd.Execute
	getMetrics = metrics.GetInstance
	exit       = os.Exit
)

// main runs the adjudicator command tree, flushes collected provider
// metrics and exits non-zero when the command failed.
func main() {
	err := executeCmd()
	if cerr := getMetrics().Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "metrics: %v\n", cerr)
	}
	if err != nil {
		exit(1)
	}
}
