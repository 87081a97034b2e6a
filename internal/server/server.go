// internal/server/server.go
// Package server exposes the adjudication pipeline over HTTP, streaming run
// progress to the browser as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwiater/adjudicator/internal/credits"
	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/metrics"
	"github.com/mwiater/adjudicator/internal/pipeline"
	"github.com/mwiater/adjudicator/internal/progress"
	"github.com/mwiater/adjudicator/internal/store"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, rc pipeline.RunContext) (pipeline.RunContext, error)
}

// Options wires a Server to its collaborators.
type Options struct {
	Store   *store.Store
	Ledger  credits.Ledger
	Runner  Runner
	Metrics *metrics.Aggregator

	// Provider is the routing key passed to every run.
	Provider    string
	CreditLimit float64
	CreditCost  float64

	// PollInterval is the stream heartbeat interval; zero uses the default.
	PollInterval time.Duration
	// SessionTTL bounds how long a submitted debate waits for its stream; zero uses the default.
	SessionTTL time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	opts     Options
	sessions *sessions
}

// ErrResp is the JSON body of every error response.
type ErrResp struct {
	Error string `json:"error"`
}

// New returns a Server with opts.
func New(opts Options) *Server {
	if opts.CreditLimit <= 0 {
		opts.CreditLimit = credits.DefaultLimit
	}
	if opts.CreditCost <= 0 {
		opts.CreditCost = credits.DefaultCost
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = progress.DefaultPollInterval
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	return &Server{opts: opts, sessions: newSessions(opts.SessionTTL)}
}

// Handler returns the routing mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /analyze/stream", s.handleStream)
	mux.HandleFunc("GET /result/{id}", s.handleResult)
	mux.HandleFunc("GET /result/{id}/", s.handleResult)
	mux.HandleFunc("GET /debates/recent", s.handleRecent)
	mux.HandleFunc("POST /debates/{id}/approval", s.handleApproval)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.LogEvent("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logging.LogEvent("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ClientIP returns the first X-Forwarded-For entry, else the host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
