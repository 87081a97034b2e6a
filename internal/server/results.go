// internal/server/results.go
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/metrics"
	"github.com/mwiater/adjudicator/internal/pipeline"
	"github.com/mwiater/adjudicator/internal/store"
)

// ResultResponse is a saved debate with its argument table.
type ResultResponse struct {
	Debate      store.Debate        `json:"debate"`
	WinnerName  string              `json:"winner_name"`
	Table       []pipeline.TableRow `json:"table"`
	ParseFailed bool                `json:"parse_failed"`
}

type recentDebate struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

type approvalRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type approvalResponse struct {
	OK                     bool `json:"ok"`
	EvaluationApprovals    int  `json:"evaluation_approvals"`
	EvaluationDisapprovals int  `json:"evaluation_disapprovals"`
	JudgmentApprovals      int  `json:"judgment_approvals"`
	JudgmentDisapprovals   int  `json:"judgment_disapprovals"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id, ok := debateID(w, r)
	if !ok {
		return
	}
	d, err := s.opts.Store.GetDebate(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	table := pipeline.BuildTable(d.Evaluation, d.Judgment)
	rc := pipeline.RunContext{Winner: d.Winner, Participant1: d.Participant1, Participant2: d.Participant2}
	writeJSON(w, http.StatusOK, ResultResponse{
		Debate:      d,
		WinnerName:  rc.WinnerName(),
		Table:       table,
		ParseFailed: table == nil,
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	debates, err := s.opts.Store.RecentDebates(r.Context(), 5)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]recentDebate, 0, len(debates))
	for _, d := range debates {
		out = append(out, recentDebate{
			ID:        d.ID,
			Title:     d.Title,
			CreatedAt: d.CreatedAt,
			URL:       "/result/" + strconv.FormatInt(d.ID, 10) + "/",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"recent_debates": out})
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := debateID(w, r)
	if !ok {
		return
	}
	var req approvalRequest
	if err := decodeJSON(w, r, &req, 4<<10); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: "invalid JSON: " + err.Error()})
		return
	}

	d, err := s.opts.Store.RecordApproval(r.Context(), id, ClientIP(r), req.Field, req.Value)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approvalResponse{
		OK:                     true,
		EvaluationApprovals:    d.EvaluationApprovals,
		EvaluationDisapprovals: d.EvaluationDisapprovals,
		JudgmentApprovals:      d.JudgmentApprovals,
		JudgmentDisapprovals:   d.JudgmentDisapprovals,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snapshot := []metrics.ModelMetrics{}
	if s.opts.Metrics != nil {
		snapshot = append(snapshot, s.opts.Metrics.Snapshot()...)
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func debateID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: "invalid debate id"})
		return 0, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrResp{Error: "debate not found"})
	case errors.Is(err, store.ErrAlreadyVoted):
		writeJSON(w, http.StatusConflict, ErrResp{Error: "you have already rated this"})
	case errors.Is(err, store.ErrInvalidApproval):
		writeJSON(w, http.StatusBadRequest, ErrResp{Error: err.Error()})
	default:
		logging.LogError("store: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrResp{Error: "internal error"})
	}
}
