// Package errors provides standardized error handling patterns for datalink components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// This classification lets components make informed decisions about retries,
// graceful degradation, and failure recovery without hardcoded error string
// matching. The dispatch layer relies on it to keep validation failures out of
// the retry path and to degrade to cache-miss behavior when the cache reports
// a transient failure.
//
// # Error Classification
//
// Errors are classified based on their type or content:
//
//   - Transient: network timeouts, connection issues, cache unavailability (retry recommended)
//   - Invalid: malformed intents, parameter validation failures, schema conflicts (do not retry)
//   - Fatal: resource exhaustion, unusable configuration (stop processing)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	if !connected {
//	    return errors.ErrNoConnection
//	}
//
// Wrap errors with context for debugging:
//
//	if err := agent.Execute(ctx, params); err != nil {
//	    return errors.Wrap(err, "Dispatcher", "dispatch", "invoke agent")
//	}
//
// Check classification for retry logic:
//
//	if err := operation(); err != nil {
//	    if errors.IsTransient(err) {
//	        config := errors.DefaultRetryConfig()
//	        if config.ShouldRetry(err, attempt) {
//	            time.Sleep(config.BackoffDelay(attempt))
//	            // retry operation
//	        }
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: underlying error"
//
// WrapTransient, WrapInvalid, and WrapFatal attach a classification on top of
// the same format so downstream handlers can branch on class without parsing
// messages:
//
//	return errors.WrapTransient(err, "Bus", "publish", "broadcast invalidation")
//
// # Relationship to the Domain Taxonomy
//
// Domain-specific failures keep their own types in their own packages
// (capability.ErrUnknownCapability, dispatch.InvalidParametersError,
// synth.CoercionError, ...). Those types flow through this package's wrappers
// so both the concrete type and the classification survive the trip to the
// caller.
//
// # Retry Integration
//
// RetryConfig bridges classification to the pkg/retry backoff loop:
//
//	cfg := errors.DefaultRetryConfig()
//	err := retry.Do(ctx, cfg.ToRetryConfig(), func() error {
//	    return client.Fetch(ctx, url)
//	})
package errors
