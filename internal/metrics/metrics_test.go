// internal/metrics/metrics_test.go
package metrics

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwiater/adjudicator/internal/providers"
)

type stubProvider struct {
	resp providers.CompletionResponse
	err  error
}

func (s stubProvider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	return s.resp, s.err
}

func (s stubProvider) Close() error { return nil }

func TestUpdateRunningStat(t *testing.T) {
	var rs RunningStat
	for _, v := range []float64{2, 4, 6} {
		updateRunningStat(&rs, v)
	}
	if rs.Count != 3 || rs.Min != 2 || rs.Max != 6 {
		t.Fatalf("unexpected running stat: %+v", rs)
	}
	if math.Abs(rs.Mean-4) > 1e-9 {
		t.Fatalf("expected mean 4, got %v", rs.Mean)
	}
	if math.Abs(rs.M2-8) > 1e-9 {
		t.Fatalf("expected M2 8, got %v", rs.M2)
	}
}

func TestProviderRecordsSuccessAndFailure(t *testing.T) {
	agg := NewAggregator("")

	ok := NewProvider(stubProvider{resp: providers.CompletionResponse{Text: "hello", Provider: "gemini", Model: "m1"}}, agg)
	if _, err := ok.Complete(context.Background(), providers.CompletionRequest{Prompt: "abc", PromptName: "judge"}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	limited := NewProvider(stubProvider{err: &providers.TransportError{Provider: "gemini", Status: 429}}, agg)
	if _, err := limited.Complete(context.Background(), providers.CompletionRequest{Provider: "gemini", Model: "m1", PromptName: "judge"}); err == nil {
		t.Fatal("expected error to pass through")
	}

	snap := agg.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected one model entry, got %d", len(snap))
	}
	stats := snap[0].OverallStats
	if stats.TotalRequests != 2 || stats.Failures != 1 || stats.RateLimited != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ResponseChars.Mean != 5 {
		t.Fatalf("expected response chars mean 5, got %v", stats.ResponseChars.Mean)
	}
	if len(snap[0].PerformanceBuckets) != 1 || snap[0].PerformanceBuckets[0].Bucket != "judge" {
		t.Fatalf("unexpected buckets: %+v", snap[0].PerformanceBuckets)
	}
}

func TestProviderMeasuresLatency(t *testing.T) {
	agg := NewAggregator("")
	p := NewProvider(stubProvider{resp: providers.CompletionResponse{Provider: "openrouter", Model: "m"}}, agg)
	base := time.Unix(0, 0)
	calls := 0
	p.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}
	if _, err := p.Complete(context.Background(), providers.CompletionRequest{}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got := agg.Snapshot()[0].OverallStats.LatencyMillis.Mean; got != 250 {
		t.Fatalf("expected 250ms latency, got %v", got)
	}
}

func TestAggregatorPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "calls.json")
	agg := NewAggregator(path)
	agg.Record(Sample{Provider: "gemini", Model: "m", PromptName: "analyze", Err: errors.New("boom")})
	if err := agg.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reloaded := NewAggregator(path)
	snap := reloaded.Snapshot()
	if len(snap) != 1 || snap[0].OverallStats.Failures != 1 {
		t.Fatalf("expected reloaded failure count, got %+v", snap)
	}
}
