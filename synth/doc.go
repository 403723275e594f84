// Package synth renders record streams into target formats using a
// learned schema profile.
//
// Synthesize builds a Plan once per run: the output columns, their order,
// and the type each value is coerced to. Columns come from the target spec
// when given, otherwise they derive from the profile with nested paths
// flattened into underscore-joined names, sorted by path, with object
// fields replaced by their children and array fields rendered as JSON.
//
// # Coercion
//
// Values coerce to their column type under the same normalization the
// learner applies: integral floats count as integers, NaN as null, times
// and bytes as strings. Anything renders as a string (nested values as
// compact JSON); numbers never parse out of strings. A value outside its
// target's reach raises a CoercionError, and the policy decides whether
// that aborts the stream or skips the record. PolicySkip fails the run
// only when the skipped fraction exceeds the threshold.
//
// # Determinism
//
// Identical inputs produce byte-identical output for every target. Column
// order comes from the plan and nested map renderings sort their keys, so
// no map iteration order reaches a sink.
//
// Targets cover delimited text (csv, tsv), documents (json, jsonl, yaml),
// markup (xml, html, markdown), SQL insert scripts, plain text (ini, txt),
// and an Apache Arrow schema export (arrow).
package synth
