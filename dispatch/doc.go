// Package dispatch routes intents to capability agents through the cache.
//
// # Overview
//
// A dispatch runs in five steps:
//
//  1. Resolve the intent's agent name against the capability registry.
//  2. Validate parameters against the declared schema, in declaration order;
//     the first violation is returned as InvalidParametersError.
//  3. Fingerprint the agent name plus normalized parameters into the cache
//     key. Object keys are sorted recursively and numbers canonicalized, so
//     maps built in different orders or numbers arriving as int, float64, or
//     json.Number all land on the same key.
//  4. Consult the cache. A hit returns immediately with no agent invocation
//     and no side effects.
//  5. On a miss, run the agent through single-flight: concurrent dispatches
//     of the same fingerprint share one invocation. Success is cached when
//     the agent marks the result cacheable; failure is surfaced as
//     AgentExecutionError to every waiter and never cached.
//
// Side effects per dispatch are strictly one cache read, at most one cache
// write, and at most one agent invocation.
//
// # Caching Directives
//
// The agent's Result controls storage: Cacheable gates the write, TTLHint
// suggests a lifetime, InvalidationTags label the entry. The intent can
// override with CacheOptions.TTLOverride or opt out with SkipCache, which
// bypasses the read, the write, and coalescing. Every cached entry also
// carries the implicit tag AgentTag(name), so one InvalidateTag call can
// drop all of an agent's cached results.
//
// A Result may also declare Invalidates: tags its execution made stale.
// After a successful invocation the dispatcher removes those tags from the
// local cache and, when an InvalidationPublisher is configured, broadcasts
// them for peer processes. This is how a write through one agent expires
// cached reads produced by another.
//
// # Timeouts and Rate Limits
//
// WithTimeout bounds the caller's wait, not the computation: on expiry the
// caller gets a deadline error while the agent invocation finishes detached,
// settles the cache, and releases the in-flight marker for future callers.
// WithRateLimit throttles a single agent's invocations; the limiter waits
// inside the computation so cache hits are never throttled.
//
// # Observability
//
// WithMetrics records dispatch counts by agent and outcome (hit, miss,
// coalesced, uncached, rejected, error), dispatch duration, and agent
// invocation counts. WithObserver delivers one DispatchEvent per dispatch
// for usage tracking; observers must hand events off without blocking.
package dispatch
