// Package datalink provides schema-aware data access: it learns the shape of
// record streams, synthesizes records into other formats, and dispatches
// cached capability calls against pluggable data connectors.
//
// # Architecture
//
// datalink is organized around one pipeline:
//
//	┌─────────────────────────────────────┐
//	│            Dispatcher               │  Validation, caching,
//	│   (resolve, coalesce, invalidate)   │  rate limits, observers
//	└─────────────────────────────────────┘
//	           ↓ executes through
//	┌─────────────────────────────────────┐
//	│         Capability Registry         │  Descriptors with typed
//	│    (rest_api, sql_query, custom)    │  parameter schemas
//	└─────────────────────────────────────┘
//	           ↓ results feed
//	┌─────────────────────────────────────┐
//	│        Schema Learning              │  Profiles, proposals,
//	│     (learn, merge, synthesize)      │  format synthesis
//	└─────────────────────────────────────┘
//
// Connectors register capabilities with typed parameter descriptors. The
// dispatcher validates intents against those descriptors, consults a
// tag-aware cache, coalesces concurrent identical calls, and reports every
// outcome to observers. Results flow into schema learning, which builds
// statistical profiles of record streams and synthesizes them into other
// formats.
//
// # Packages
//
// Core:
//   - capability: registry of dispatchable agents with parameter schemas
//   - dispatch: cached, coalesced, rate-limited intent execution
//   - schema: record stream profiling, merging, and schema proposals
//   - synth: profile-driven synthesis into twelve output formats
//   - connectors: REST and SQL connectors plus usage tracking
//   - event: NATS bus broadcasting cache invalidations between instances
//
// Supporting:
//   - pkg/cache: generic TTL cache with tag invalidation and single-flight
//   - pkg/retry: classified-error retry with exponential backoff
//   - pkg/worker: bounded worker pools with metrics
//   - pkg/buffer: bounded window over recent items
//   - pkg/timestamp: tolerant timestamp parsing
//   - pkg/tlsutil: TLS configuration for outbound connectors
//   - errors, logging, metric, config: ambient infrastructure
//
// # Dispatch Example
//
//	registry := capability.NewRegistry()
//	if err := connectors.Register(registry, cfg.Connectors); err != nil {
//		return err
//	}
//
//	store, err := cache.New[*capability.Result](ctx, cfg.Cache)
//	if err != nil {
//		return err
//	}
//
//	dispatcher, err := dispatch.New(registry, store,
//		dispatch.WithDefaultTTL(5*time.Minute))
//	if err != nil {
//		return err
//	}
//
//	result, err := dispatcher.Dispatch(ctx, &dispatch.Intent{
//		AgentName:  "sql_query",
//		Parameters: map[string]any{"query": "SELECT * FROM users"},
//	})
//
// # Schema Learning Example
//
//	f, _ := os.Open("records.jsonl")
//	src := schema.NewJSONLSource(f)
//
//	profile, err := schema.Learn(ctx, src)
//	if err != nil {
//		return err
//	}
//
//	_ = src.Reset()
//	out, err := synth.Synthesize(ctx, src, profile, synth.TargetSpec{
//		Format: synth.TargetCSV,
//	})
//
// Profiles merge associatively, so large streams can be learned in shards
// with schema.LearnSharded and combined with schema.Merge.
//
// # Cache Invalidation
//
// Results carry invalidation tags. Write operations name the tags they
// invalidate, the dispatcher drops matching cache entries locally, and an
// optional event.Bus broadcasts the invalidation to other instances over
// NATS. Subscribers filter their own publishes by origin, so an instance
// never re-invalidates what it already removed.
package datalink
