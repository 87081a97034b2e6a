// internal/tui/plain.go
package tui

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/mwiater/adjudicator/internal/progress"
)

// PlainWriter prints one colored line per frame, for terminals where the
// interactive view is unwanted. Heartbeats are skipped and each snippet is
// printed once, when it first appears or changes.
type PlainWriter struct {
	out  io.Writer
	seen map[string]string

	stage *color.Color
	retry *color.Color
	fail  *color.Color
	ok    *color.Color
	faint *color.Color
}

// NewPlainWriter returns a PlainWriter on out.
func NewPlainWriter(out io.Writer) *PlainWriter {
	return &PlainWriter{
		out:   out,
		seen:  map[string]string{},
		stage: color.New(color.FgCyan),
		retry: color.New(color.FgYellow),
		fail:  color.New(color.FgRed, color.Bold),
		ok:    color.New(color.FgGreen, color.Bold),
		faint: color.New(color.Faint),
	}
}

// WriteFrame implements progress.FrameWriter.
func (w *PlainWriter) WriteFrame(fr progress.Frame) error {
	if fr.Heartbeat {
		return nil
	}

	var err error
	switch fr.Stage {
	case progress.StageError:
		_, err = w.fail.Fprintf(w.out, "[error] %s\n", fr.Message)
	case progress.StageComplete:
		_, err = w.ok.Fprintf(w.out, "[%3d%%] %s\n", fr.Percent, fr.Message)
	case progress.StageRetrying:
		_, err = w.retry.Fprintf(w.out, "[%3d%%] %s\n", fr.Percent, fr.Message)
	default:
		_, err = fmt.Fprintf(w.out, "[%3d%%] %s %s\n", fr.Percent, w.stage.Sprint(fr.Stage), fr.Message)
	}
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(fr.Snippets))
	for k := range fr.Snippets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fr.Snippets[k]
		if w.seen[k] == v {
			continue
		}
		w.seen[k] = v
		if _, err := fmt.Fprintf(w.out, "       %s %s\n", w.faint.Sprint(k+":"), v); err != nil {
			return err
		}
	}
	return nil
}
