// internal/server/analyze.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/adjudicator/internal/credits"
	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/pipeline"
	"github.com/mwiater/adjudicator/internal/progress"
	"github.com/mwiater/adjudicator/internal/sanitize"
	"github.com/mwiater/adjudicator/internal/store"
)

const maxDebateBytes = 1 << 20

var analyzeSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"properties": {
		"debate_text": {"type": "string", "minLength": 1, "maxLength": 100000}
	},
	"required": ["debate_text"],
	"additionalProperties": false
}`)

type analyzeResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

// handleAnalyze accepts a debate, charges the caller's credits and returns
// the session token for the stream that runs it.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	text, err := readDebateText(w, r)
	if err != nil {
		logging.LogError("analyze request rejected: %v", err)
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: err.Error()})
		return
	}
	text = sanitize.PlainText(text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: "debate_text is empty"})
		return
	}

	ip := ClientIP(r)
	if s.opts.Ledger != nil {
		if _, err := credits.Charge(r.Context(), s.opts.Ledger, ip, s.opts.CreditCost); err != nil {
			if errors.Is(err, credits.ErrLimitReached) {
				logging.LogEvent("credit limit reached for %s", ip)
				writeJSON(w, http.StatusTooManyRequests, ErrResp{Error: credits.LimitMessage(s.opts.CreditLimit)})
				return
			}
			logging.LogError("credit check for %s: %v", ip, err)
			writeJSON(w, http.StatusInternalServerError, ErrResp{Error: "credit check failed"})
			return
		}
	}

	token := s.sessions.put(text)
	logging.LogEvent("accepted debate from %s (%d chars), session %s", ip, len(text), token)
	writeJSON(w, http.StatusOK, analyzeResponse{Status: "ok", Session: token})
}

// readDebateText reads debate_text from a JSON or form body and validates it against analyzeSchema.
func readDebateText(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Body == nil {
		return "", errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxDebateBytes)
	defer r.Body.Close()

	var body struct {
		DebateText string `json:"debate_text"`
	}
	var doc gojsonschema.JSONLoader
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return "", fmt.Errorf("invalid form: %w", err)
		}
		fields := map[string]any{}
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
		doc = gojsonschema.NewGoLoader(fields)
		body.DebateText = r.PostForm.Get("debate_text")
	} else {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return "", fmt.Errorf("invalid JSON: %w", err)
		}
		doc = gojsonschema.NewBytesLoader(raw)
	}

	result, err := gojsonschema.Validate(analyzeSchema, doc)
	if err != nil {
		return "", fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return "", fmt.Errorf("invalid request: %s", strings.Join(errs, ", "))
	}
	return body.DebateText, nil
}

// handleStream runs the submitted debate and streams its progress. The
// session token is consumed whether or not the run succeeds. A client that
// disconnects abandons the stream; the run finishes in the background but
// its debate is not saved.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("session")
	text, ok := s.sessions.take(token)
	if !ok {
		writeJSON(w, http.StatusForbidden, ErrResp{Error: "no pending debate for this session"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrResp{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writer := progress.FrameWriterFunc(func(fr progress.Frame) error {
		data, err := json.Marshal(fr)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	runID := token
	bridge := progress.Start(func(emit progress.Emitter) (pipeline.RunContext, error) {
		return s.opts.Runner.Run(context.Background(), pipeline.RunContext{
			Text:     text,
			RunID:    runID,
			Provider: s.opts.Provider,
			Progress: emit,
		})
	}, progress.WithPollInterval(s.opts.PollInterval), progress.WithInitial(progress.Event{
		Stage:   progress.StageAnalyzing,
		Message: "Identifying participants and arguments...",
		Percent: 5,
	}))

	finish := func(rc pipeline.RunContext, err error) progress.Frame {
		if err != nil {
			logging.LogError("run %s failed: %v", runID, err)
			return progress.ErrorFrame(pipeline.UserMessage(err))
		}
		id, err := s.saveDebate(r.Context(), rc)
		if err != nil {
			logging.LogError("run %s: save debate: %v", runID, err)
			return progress.ErrorFrame("The analysis finished but could not be saved. Please try again.")
		}
		logging.LogEvent("created debate with id %d", id)
		return progress.CompleteFrame(id, fmt.Sprintf("/result/%d/", id), rc.Winner, rc.Judgment)
	}

	if err := bridge.Consume(r.Context(), writer, finish); err != nil {
		logging.LogEvent("stream %s closed early: %v", runID, err)
	}
}

func (s *Server) saveDebate(ctx context.Context, rc pipeline.RunContext) (int64, error) {
	if s.opts.Store == nil {
		return 0, errors.New("no store configured")
	}
	return s.opts.Store.CreateDebate(ctx, DebateRecord(rc, s.opts.CreditCost))
}

// DebateRecord maps a finished run to the row that stores it.
func DebateRecord(rc pipeline.RunContext, cost float64) store.Debate {
	return store.Debate{
		RunID:               rc.RunID,
		OriginalText:        rc.Text,
		Title:               rc.Title,
		Participant1:        rc.Participant1,
		Participant2:        rc.Participant2,
		Summary1:            rc.Summary1,
		Summary2:            rc.Summary2,
		Winner:              rc.Winner,
		CreditCost:          cost,
		Analysis:            rc.Analysis,
		Evaluation:          rc.Evaluation,
		Judgment:            rc.Judgment,
		FormattedEvaluation: rc.FormattedEvaluation,
		FormattedJudgment:   rc.FormattedJudgment,
	}
}
