// internal/cli/output.go
package cli

import (
	"os"

	"github.com/fatih/color"
)

func init() {
	// NO_COLOR still disables color; otherwise keep it when piped.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	successLine = color.New(color.FgGreen)
	noticeLine  = color.New(color.FgYellow)
	errorLine   = color.New(color.FgRed, color.Bold)
	labelText   = color.New(color.FgCyan)
)
