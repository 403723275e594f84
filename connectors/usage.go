package connectors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360/datalink/dispatch"
	"github.com/c360/datalink/logging"
	"github.com/c360/datalink/metric"
	"github.com/c360/datalink/pkg/buffer"
	"github.com/c360/datalink/pkg/worker"
)

const (
	usageQueueSize = 1024

	// recentWindow bounds how many dispatch events Recent can return.
	recentWindow = 256
)

// AgentStats aggregates dispatch outcomes for one agent.
type AgentStats struct {
	Agent         string        `json:"agent"`
	Total         int64         `json:"total"`
	Successful    int64         `json:"successful"`
	Failed        int64         `json:"failed"`
	TotalDuration time.Duration `json:"total_duration"`
	LastUsed      time.Time     `json:"last_used"`
}

// SuccessRate is the fraction of calls that succeeded. Agents with no
// recorded calls start at 1.0 so a fresh connector is eligible for
// recommendation.
func (s AgentStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 1.0
	}
	return float64(s.Successful) / float64(s.Total)
}

// AvgLatency is the mean duration across all recorded calls.
func (s AgentStats) AvgLatency() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Total)
}

// UsageRecorder aggregates dispatch events into per-agent statistics and
// recommends agents based on their track record. Events are handed off to a
// single worker so observation never blocks the dispatch path.
type UsageRecorder struct {
	mu      sync.RWMutex
	stats   map[string]*AgentStats
	recent  *buffer.Ring[dispatch.DispatchEvent]
	pool    *worker.Pool[dispatch.DispatchEvent]
	logger  *logging.Logger
	metrics *metric.MetricsRegistry
}

// UsageOption configures a UsageRecorder.
type UsageOption func(*UsageRecorder)

// WithUsageLogger sets the service logger.
func WithUsageLogger(l *logging.Logger) UsageOption {
	return func(r *UsageRecorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithUsageMetrics exposes the recorder's queue through the metrics registry.
func WithUsageMetrics(registry *metric.MetricsRegistry) UsageOption {
	return func(r *UsageRecorder) {
		r.metrics = registry
	}
}

// NewUsageRecorder builds a recorder. Call Start before wiring it into a
// dispatcher and Stop when done.
func NewUsageRecorder(opts ...UsageOption) *UsageRecorder {
	r := &UsageRecorder{
		stats:  make(map[string]*AgentStats),
		recent: buffer.NewRing[dispatch.DispatchEvent](recentWindow),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewLogger("usage-recorder", nil, nil)
	}

	poolOpts := []worker.Option[dispatch.DispatchEvent]{
		worker.WithName[dispatch.DispatchEvent]("usage_recorder"),
	}
	if r.metrics != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[dispatch.DispatchEvent](r.metrics, "usage"))
	}
	r.pool = worker.NewPool(1, usageQueueSize, r.record, poolOpts...)
	return r
}

// Start launches the aggregation worker.
func (r *UsageRecorder) Start(ctx context.Context) error {
	return r.pool.Start(ctx)
}

// Stop drains the queue and shuts the worker down.
func (r *UsageRecorder) Stop(timeout time.Duration) error {
	return r.pool.Stop(timeout)
}

// Observe queues one dispatch event for aggregation. When the queue is full
// the sample is dropped rather than blocking the caller.
func (r *UsageRecorder) Observe(ev dispatch.DispatchEvent) {
	if err := r.pool.Submit(ev); err != nil {
		r.logger.Debug(fmt.Sprintf("dropping usage sample for %s: %v", ev.Agent, err))
	}
}

// record is the pool processor.
func (r *UsageRecorder) record(_ context.Context, ev dispatch.DispatchEvent) error {
	if ev.Agent == "" {
		return nil
	}
	r.recent.Push(ev)

	if ev.Outcome == dispatch.OutcomeRejected {
		// Rejected calls never reached an agent, so they stay out of the
		// success statistics. The recent window still shows them.
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[ev.Agent]
	if !ok {
		s = &AgentStats{Agent: ev.Agent}
		r.stats[ev.Agent] = s
	}
	s.Total++
	if ev.Outcome == dispatch.OutcomeError {
		s.Failed++
	} else {
		s.Successful++
	}
	s.TotalDuration += ev.Duration
	if ev.Timestamp.After(s.LastUsed) {
		s.LastUsed = ev.Timestamp
	}
	return nil
}

// Recent returns up to n of the latest dispatch events, oldest first. Zero
// or negative n returns the whole window.
func (r *UsageRecorder) Recent(n int) []dispatch.DispatchEvent {
	return r.recent.Last(n)
}

// Stats returns the aggregate for one agent.
func (r *UsageRecorder) Stats(agent string) (AgentStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stats[agent]
	if !ok {
		return AgentStats{}, false
	}
	return *s, true
}

// Report returns every agent's aggregate, best performers first. Agents are
// ordered by success rate, then call volume, then name.
func (r *UsageRecorder) Report() []AgentStats {
	r.mu.RLock()
	out := make([]AgentStats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].SuccessRate(), out[j].SuccessRate()
		if ri != rj {
			return ri > rj
		}
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Agent < out[j].Agent
	})
	return out
}

// Recommend picks the agent best suited for a capability hint. Agents whose
// name contains the hint compete on success rate; when nothing matches, the
// busiest agent with a success rate above 0.7 wins.
func (r *UsageRecorder) Recommend(capabilityHint string) (string, bool) {
	all := r.Report()

	hint := strings.ToLower(strings.TrimSpace(capabilityHint))
	if hint != "" {
		for _, s := range all {
			if strings.Contains(strings.ToLower(s.Agent), hint) {
				return s.Agent, true
			}
		}
	}

	var best AgentStats
	found := false
	for _, s := range all {
		if s.SuccessRate() <= 0.7 {
			continue
		}
		if !found || s.Total > best.Total || (s.Total == best.Total && s.Agent < best.Agent) {
			best = s
			found = true
		}
	}
	if !found {
		return "", false
	}
	return best.Agent, true
}
