package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/datalink/capability"
	"github.com/c360/datalink/errors"
	"github.com/c360/datalink/logging"
	"github.com/c360/datalink/metric"
	"github.com/c360/datalink/pkg/cache"
)

// Dispatch outcomes as they appear in metrics labels and events.
const (
	// OutcomeHit is a dispatch served from the cache with no agent invocation.
	OutcomeHit = "hit"
	// OutcomeMiss is a dispatch that ran the agent and returned its result.
	OutcomeMiss = "miss"
	// OutcomeCoalesced is a dispatch served by another caller's in-flight computation.
	OutcomeCoalesced = "coalesced"
	// OutcomeUncached is a dispatch that opted out of caching (SkipCache).
	OutcomeUncached = "uncached"
	// OutcomeError is a dispatch whose agent invocation or result wait failed.
	OutcomeError = "error"
	// OutcomeRejected is a dispatch refused before any agent ran (unknown
	// capability or invalid parameters).
	OutcomeRejected = "rejected"
)

// InvalidationPublisher broadcasts tag invalidations beyond the local cache,
// typically to peer processes over the event bus.
type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, tag string) error
}

// Dispatcher routes intents to agents through the cache: resolve, validate,
// fingerprint, consult the cache, and on a miss run the agent exactly once
// per fingerprint no matter how many callers ask concurrently.
type Dispatcher struct {
	registry *capability.Registry
	cache    cache.Cache[*capability.Result]
	flight   *cache.Flight[*capability.Result]

	defaultTTL time.Duration
	timeout    time.Duration
	limiters   map[string]*rate.Limiter
	publisher  InvalidationPublisher
	observer   Observer
	metrics    *metric.Metrics
	logger     *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDefaultTTL sets the TTL applied to cached results when neither the
// intent nor the agent specifies one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.defaultTTL = ttl
		}
	}
}

// WithTimeout bounds each dispatch. When the deadline passes, the caller
// gets a deadline error; an in-flight agent computation keeps running
// detached and still settles the cache and the in-flight marker.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithRateLimit throttles invocations of one agent. The limiter waits inside
// the computation, after cache consultation, so hits are never throttled.
func WithRateLimit(agent string, perSecond float64, burst int) Option {
	return func(d *Dispatcher) {
		if agent != "" && perSecond > 0 {
			d.limiters[agent] = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithInvalidationPublisher broadcasts write-invalidations after they are
// applied locally.
func WithInvalidationPublisher(pub InvalidationPublisher) Option {
	return func(d *Dispatcher) {
		d.publisher = pub
	}
}

// WithObserver registers a hook that receives one DispatchEvent per
// completed dispatch. The observer must not block; use a worker pool or
// buffered intake for anything expensive.
func WithObserver(obs Observer) Option {
	return func(d *Dispatcher) {
		d.observer = obs
	}
}

// WithMetrics enables Prometheus dispatch metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher over a capability registry and a result cache.
func New(registry *capability.Registry, store cache.Cache[*capability.Result], opts ...Option) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Dispatcher", "New", "registry is required")
	}
	if store == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Dispatcher", "New", "cache is required")
	}

	d := &Dispatcher{
		registry:   registry,
		cache:      store,
		flight:     cache.NewFlight[*capability.Result](),
		defaultTTL: 5 * time.Minute,
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		// Local-only sink; callers wire a real logger through WithLogger
		d.logger = logging.NewLogger("dispatcher", nil, nil)
	}
	return d, nil
}

// AgentTag returns the implicit invalidation tag every cached result for an
// agent carries. InvalidateTag(AgentTag(name)) drops everything that agent
// ever cached.
func AgentTag(agent string) string {
	return "agent:" + agent
}

// Dispatch resolves, validates, and executes an intent.
//
// The cache is consulted once; a hit returns immediately with no side
// effects. On a miss the agent runs through single-flight, so concurrent
// dispatches of the same fingerprint share one invocation and one result.
// An agent failure surfaces as AgentExecutionError to every waiting caller
// and is never cached.
func (d *Dispatcher) Dispatch(ctx context.Context, intent *Intent) (*capability.Result, error) {
	if intent == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Dispatcher", "Dispatch", "nil intent")
	}

	start := time.Now()
	requestID := uuid.New().String()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	desc, agent, err := d.registry.Lookup(intent.AgentName)
	if err != nil {
		d.finish(ctx, intent.AgentName, requestID, OutcomeRejected, false, start, err)
		return nil, err
	}

	if verr := validateParameters(desc, intent.Parameters); verr != nil {
		verr = errors.WrapInvalid(verr, "Dispatcher", "Dispatch", "parameter validation")
		d.finish(ctx, desc.Name, requestID, OutcomeRejected, false, start, verr)
		return nil, verr
	}

	key := Fingerprint(desc.Name, intent.Parameters)

	// SkipCache opts out entirely: no read, no write, no coalescing.
	if intent.CacheOptions.SkipCache {
		result, eerr := d.execute(ctx, desc.Name, agent, intent.Parameters)
		outcome := OutcomeUncached
		if eerr != nil {
			outcome = OutcomeError
		}
		d.finish(ctx, desc.Name, requestID, outcome, false, start, eerr)
		return result, eerr
	}

	if result, ok := d.cache.Get(key); ok {
		d.finish(ctx, desc.Name, requestID, OutcomeHit, false, start, nil)
		return result, nil
	}

	result, shared, err := d.flight.Do(ctx, key, func(runCtx context.Context) (*capability.Result, error) {
		res, eerr := d.execute(runCtx, desc.Name, agent, intent.Parameters)
		if eerr != nil {
			return nil, eerr
		}
		if res.Cacheable {
			opts := cache.EntryOptions{
				TTL:  d.entryTTL(intent.CacheOptions, res),
				Tags: entryTags(desc.Name, res),
			}
			if _, serr := d.cache.SetWithOptions(key, res, opts); serr != nil {
				// Degraded cache is a miss, never a dispatch failure
				d.logger.Warn(fmt.Sprintf("cache store for %s failed: %v", key, serr))
			}
		}
		return res, nil
	})

	if shared {
		if stats := d.cache.Stats(); stats != nil {
			stats.CoalescedWait()
		}
	}

	outcome := OutcomeMiss
	switch {
	case err != nil:
		outcome = OutcomeError
		err = errors.Wrap(err, "Dispatcher", "Dispatch", fmt.Sprintf("agent %q dispatch", desc.Name))
	case shared:
		outcome = OutcomeCoalesced
	}

	d.finish(ctx, desc.Name, requestID, outcome, shared, start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// execute runs one agent invocation: rate limit, execute, classify failure,
// then apply the write-invalidations a successful result declares.
func (d *Dispatcher) execute(ctx context.Context, agentName string, agent capability.Agent, params map[string]any) (*capability.Result, error) {
	if lim, ok := d.limiters[agentName]; ok {
		if err := lim.Wait(ctx); err != nil {
			return nil, errors.WrapTransient(errors.ErrRateLimited, "Dispatcher", "execute",
				fmt.Sprintf("rate limit wait for agent %q", agentName))
		}
	}

	res, err := agent.Execute(ctx, params)
	if err != nil {
		d.recordInvocation(agentName, "error")
		return nil, &AgentExecutionError{Agent: agentName, Err: err}
	}
	if res == nil {
		d.recordInvocation(agentName, "error")
		return nil, &AgentExecutionError{Agent: agentName, Err: fmt.Errorf("agent returned no result")}
	}
	d.recordInvocation(agentName, "success")

	d.applyInvalidations(ctx, res.Invalidates)
	return res, nil
}

// applyInvalidations removes locally cached entries for each tag a write
// invalidated and broadcasts the tags when a publisher is configured.
func (d *Dispatcher) applyInvalidations(ctx context.Context, tags []string) {
	for _, tag := range tags {
		removed, err := d.cache.InvalidateTag(tag)
		if err != nil {
			d.logger.Warn(fmt.Sprintf("invalidating tag %q failed: %v", tag, err))
		} else if removed > 0 {
			d.logger.Debug(fmt.Sprintf("invalidated %d cached entries for tag %q", removed, tag))
		}

		if d.publisher != nil {
			if err := d.publisher.PublishInvalidation(ctx, tag); err != nil {
				d.logger.Warn(fmt.Sprintf("publishing invalidation for tag %q failed: %v", tag, err))
			}
		}
	}
}

// entryTTL picks the TTL for a cached result: intent override, then agent
// hint, then the configured default.
func (d *Dispatcher) entryTTL(opts CacheOptions, res *capability.Result) time.Duration {
	if opts.TTLOverride > 0 {
		return opts.TTLOverride
	}
	if res.TTLHint > 0 {
		return res.TTLHint
	}
	return d.defaultTTL
}

// entryTags combines the agent's declared tags with the implicit agent tag.
func entryTags(agentName string, res *capability.Result) []string {
	tags := make([]string, 0, len(res.InvalidationTags)+1)
	tags = append(tags, res.InvalidationTags...)
	tags = append(tags, AgentTag(agentName))
	return tags
}

// finish records metrics, logs, and the observer event for one dispatch.
func (d *Dispatcher) finish(ctx context.Context, agent, requestID, outcome string, shared bool, start time.Time, err error) {
	duration := time.Since(start)

	if d.metrics != nil {
		d.metrics.RecordDispatch(agent, outcome)
		d.metrics.RecordDispatchDuration(agent, duration)
	}

	if err != nil {
		d.logger.ErrorContext(ctx, fmt.Sprintf("dispatch for agent %q failed (request %s)", agent, requestID), err)
	} else {
		d.logger.DebugContext(ctx, fmt.Sprintf("dispatch %s for agent %q in %s (request %s)",
			outcome, agent, duration, requestID))
	}

	if d.observer != nil {
		event := DispatchEvent{
			RequestID: requestID,
			Agent:     agent,
			Outcome:   outcome,
			Shared:    shared,
			Duration:  duration,
			Timestamp: time.Now().UTC(),
		}
		if err != nil {
			event.Error = err.Error()
		}
		d.observer.Observe(event)
	}
}

// recordInvocation counts one agent execution in metrics.
func (d *Dispatcher) recordInvocation(agent, status string) {
	if d.metrics != nil {
		d.metrics.RecordAgentInvocation(agent, status)
	}
}
