// internal/progress/frame.go
package progress

import (
	"encoding/json"
	"maps"
)

// Frame is one JSON object written to the client stream.
type Frame struct {
	Heartbeat bool `json:"-"`

	Stage    string            `json:"stage"`
	Message  string            `json:"message,omitempty"`
	Percent  int               `json:"percent"`
	Snippets map[string]string `json:"snippets,omitempty"`

	Attempt      int    `json:"attempt,omitempty"`
	Title        string `json:"title,omitempty"`
	Participant1 string `json:"belligerent_1,omitempty"`
	Participant2 string `json:"belligerent_2,omitempty"`
	Summary1     string `json:"summary_1,omitempty"`
	Summary2     string `json:"summary_2,omitempty"`

	Redirect string `json:"redirect,omitempty"`
	DebateID int64  `json:"debate_id,omitempty"`
	Winner   string `json:"winner,omitempty"`
	Judgment string `json:"judgment,omitempty"`
}

type frameJSON Frame

var heartbeatJSON = []byte(`{"heartbeat":true}`)

// MarshalJSON writes heartbeats as {"heartbeat":true} and everything else as a plain object.
func (f Frame) MarshalJSON() ([]byte, error) {
	if f.Heartbeat {
		return heartbeatJSON, nil
	}
	return json.Marshal(frameJSON(f))
}

// Heartbeat returns the keep-alive frame.
func Heartbeat() Frame { return Frame{Heartbeat: true} }

// ErrorFrame returns a terminal error frame.
func ErrorFrame(message string) Frame {
	return Frame{Stage: StageError, Message: message, Percent: 0}
}

// CompleteFrame returns the terminal success frame.
func CompleteFrame(debateID int64, redirect, winner, judgment string) Frame {
	return Frame{
		Stage:    StageComplete,
		Message:  "Analysis complete!",
		Percent:  100,
		Redirect: redirect,
		DebateID: debateID,
		Winner:   winner,
		Judgment: judgment,
	}
}

// FrameWriter writes frames to a client.
type FrameWriter interface {
	WriteFrame(Frame) error
}

// FrameWriterFunc adapts a function to the FrameWriter interface.
type FrameWriterFunc func(Frame) error

// WriteFrame calls f(fr).
func (f FrameWriterFunc) WriteFrame(fr Frame) error { return f(fr) }

// Display accumulates what the client has been shown so far.
type Display struct {
	percent  int
	snippets map[string]string
}

// NewDisplay returns an empty display state.
func NewDisplay() *Display {
	return &Display{snippets: map[string]string{}}
}

// Percent is the highest percent seen so far.
func (d *Display) Percent() int { return d.percent }

// Apply merges e into the display and returns the frame to write. The percent
// never decreases; snippets accumulate by content type with the latest winning.
func (d *Display) Apply(e Event) Frame {
	if e.ContentType != "" && e.ContentSnippet != "" {
		d.snippets[e.ContentType] = e.ContentSnippet
	}
	if e.Percent > d.percent {
		d.percent = min(e.Percent, 100)
	}
	stage := e.Stage
	if stage == "" {
		stage = StageProcessing
	}
	message := e.Message
	if message == "" {
		message = "Processing..."
	}
	return Frame{
		Stage:        stage,
		Message:      message,
		Percent:      d.percent,
		Snippets:     maps.Clone(d.snippets),
		Attempt:      e.Attempt,
		Title:        e.Title,
		Participant1: e.Participant1,
		Participant2: e.Participant2,
		Summary1:     e.Summary1,
		Summary2:     e.Summary2,
	}
}
