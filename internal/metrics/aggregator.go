// internal/metrics/aggregator.go
package metrics

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/providers"
)

// Sample is one completed provider call.
type Sample struct {
	Provider      string
	Model         string
	PromptName    string
	Latency       time.Duration
	PromptChars   int
	ResponseChars int
	Err           error
}

// Aggregator collects and manages call metrics per provider and model.
type Aggregator struct {
	mutex    sync.Mutex
	metrics  map[string]*ModelMetrics
	filePath string
}

var (
	instance *Aggregator
	once     sync.Once
)

// GetInstance returns the process-wide in-memory Aggregator.
func GetInstance() *Aggregator {
	once.Do(func() {
		instance = NewAggregator("")
	})
	return instance
}

// NewAggregator creates an Aggregator. When filePath is set, previously saved
// metrics are loaded from it and Close writes them back.
func NewAggregator(filePath string) *Aggregator {
	agg := &Aggregator{
		metrics:  make(map[string]*ModelMetrics),
		filePath: filePath,
	}
	agg.load()
	return agg
}

func metricsKey(provider, model string) string {
	return provider + "/" + model
}

// load reads metrics from the JSON file into memory.
func (a *Aggregator) load() {
	if a.filePath == "" {
		return
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()

	data, err := os.ReadFile(a.filePath)
	if err != nil {
		return
	}

	var metricsSlice []*ModelMetrics
	if err := json.Unmarshal(data, &metricsSlice); err != nil {
		return
	}

	for _, m := range metricsSlice {
		a.metrics[metricsKey(m.Provider, m.ModelName)] = m
	}
}

// save writes the current metrics from memory to the JSON file.
func (a *Aggregator) save() error {
	if a.filePath == "" {
		return nil
	}
	logging.LogEvent("[METRICS] Saving metrics to %s", a.filePath)
	data, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.filePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(a.filePath, data, 0o644)
}

// Record updates the metrics for the sample's provider and model.
func (a *Aggregator) Record(s Sample) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	key := metricsKey(s.Provider, s.Model)
	modelMetrics, exists := a.metrics[key]
	if !exists {
		modelMetrics = &ModelMetrics{
			Provider:  s.Provider,
			ModelName: s.Model,
		}
		a.metrics[key] = modelMetrics
	}

	modelMetrics.LastUpdatedUTC = time.Now().UTC()

	updateStats(&modelMetrics.OverallStats, s)

	bucket := s.PromptName
	if bucket == "" {
		bucket = "unnamed"
	}
	for i := range modelMetrics.PerformanceBuckets {
		if modelMetrics.PerformanceBuckets[i].Dimension == "prompt" && modelMetrics.PerformanceBuckets[i].Bucket == bucket {
			updateStats(&modelMetrics.PerformanceBuckets[i].Stats, s)
			return
		}
	}
	newBucket := PerformanceBucket{Dimension: "prompt", Bucket: bucket}
	updateStats(&newBucket.Stats, s)
	modelMetrics.PerformanceBuckets = append(modelMetrics.PerformanceBuckets, newBucket)
}

// Snapshot returns a copy of all metrics ordered by provider and model.
func (a *Aggregator) Snapshot() []ModelMetrics {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	out := make([]ModelMetrics, 0, len(a.metrics))
	for _, m := range a.metrics {
		cp := *m
		cp.PerformanceBuckets = append([]PerformanceBucket(nil), m.PerformanceBuckets...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ModelName < out[j].ModelName
	})
	return out
}

// updateStats updates the running statistics with a new sample.
func updateStats(stats *RunningAggregatedStats, s Sample) {
	stats.TotalRequests++
	if s.Err != nil {
		stats.Failures++
		var te *providers.TransportError
		if errors.As(s.Err, &te) && te.RateLimited() {
			stats.RateLimited++
		}
	}
	updateRunningStat(&stats.LatencyMillis, float64(s.Latency.Milliseconds()))
	updateRunningStat(&stats.PromptChars, float64(s.PromptChars))
	if s.Err == nil {
		updateRunningStat(&stats.ResponseChars, float64(s.ResponseChars))
	}
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

// Close saves the metrics when a file path is configured.
func (a *Aggregator) Close() error {
	return a.save()
}
