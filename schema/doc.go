// Package schema infers the structure of semi-structured record streams.
//
// Learn consumes a RecordSource and builds a Profile: for every field
// path it keeps a histogram over the seven value types (null, boolean,
// integer, float, string, object, array), a K-minimum-values sketch of
// distinct scalar values, and tallies of refined string formats. The
// inferred type of a field is its histogram mode, and the confidence is
// the mode's share of observations. A field absent from a record counts
// toward its null rate but not its histogram.
//
// # Paths
//
// Nested objects flatten into dotted paths, so {"user": {"name": ...}}
// profiles under "user" and "user.name". Arrays mark their field Repeated
// and profile their elements under the path plus "[]": a field "tags"
// holding string arrays yields "tags" (type array) and "tags[]" (type
// string). Rates for element paths are relative to the element count of
// the enclosing array rather than the record count.
//
// # Incremental learning
//
// Merge combines profiles learned over separate partitions of a stream.
// It is associative and commutative, and merging partition profiles gives
// exactly the profile of learning the concatenated stream, so paginated
// or multi-endpoint data can be profiled incrementally in any order.
// LearnSharded runs Learn over several sources concurrently and folds the
// results with Merge.
//
// # Refinement and hints
//
// String fields report a Format (date, timestamp, email, url, uuid) when
// at least 90% of their observed values share it. Proposal derives the
// external schema shape: per-field type, confidence, and null rate, plus
// deterministic hints. A field is a primary-key candidate when its
// distinct-value estimate equals its sample count and its null rate is
// zero; identifier-named and time-bearing fields that are not primary-key
// candidates become index candidates.
//
// Learning never fails on malformed data: values the learner cannot
// interpret count toward the field's null rate and the pass continues.
package schema
