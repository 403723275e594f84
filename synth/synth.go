package synth

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/c360/datalink/errors"
	"github.com/c360/datalink/schema"
)

// Policy selects how Synthesize handles a record that fails coercion.
type Policy int

const (
	// PolicySkip drops offending records and reports the count; the run
	// fails only when the skipped fraction exceeds the threshold.
	PolicySkip Policy = iota
	// PolicyAbort fails the stream on the first coercion error.
	PolicyAbort
)

// DefaultSkipThreshold is the skipped-record fraction above which PolicySkip
// fails the stream.
const DefaultSkipThreshold = 0.5

// ErrSkipThresholdExceeded reports that PolicySkip dropped too large a
// fraction of the stream.
var ErrSkipThresholdExceeded = stderrors.New("skipped records exceed threshold")

// ErrUnknownTarget reports a target format no sink can produce.
var ErrUnknownTarget = stderrors.New("unknown target format")

// Option configures a synthesis run.
type Option func(*options)

type options struct {
	policy        Policy
	skipThreshold float64
}

// WithPolicy selects the coercion failure policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithSkipThreshold overrides the skipped-record fraction PolicySkip
// tolerates before failing. Values outside [0, 1] are ignored.
func WithSkipThreshold(t float64) Option {
	return func(o *options) {
		if t >= 0 && t <= 1 {
			o.skipThreshold = t
		}
	}
}

// Output is a finished synthesis.
type Output struct {
	// Data is the rendered document.
	Data []byte
	// Extension is the conventional file extension for the format.
	Extension string
	// ContentType is the MIME type of Data.
	ContentType string
	// Records is the number of records rendered.
	Records int
	// Skipped is the number of records dropped under PolicySkip.
	Skipped int
}

// Synthesize renders a record stream into the target format.
//
// The mapping plan is built once from the profile and the target spec, then
// applied to every record: each column's value is coerced to the column type,
// and a record with an uncoercible value is skipped or aborts the run per
// the policy. Identical inputs yield byte-identical output; column order comes
// from the plan, never from map iteration.
//
// The source is read from its current position to EOF. Callers reusing the
// source the profile was learned from reset it first.
func Synthesize(ctx context.Context, source schema.RecordSource, profile *schema.Profile, spec TargetSpec, opts ...Option) (*Output, error) {
	if source == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Synthesizer", "Synthesize", "nil record source")
	}

	o := options{skipThreshold: DefaultSkipThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	plan, err := BuildPlan(profile, spec)
	if err != nil {
		return nil, err
	}

	var rows [][]any
	skipped := 0
	for {
		rec, err := source.Next(ctx)
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}
			return nil, errors.WrapTransient(err, "Synthesizer", "Synthesize", "read record")
		}
		row, cerr := coerceRecord(plan, rec)
		if cerr != nil {
			if o.policy == PolicyAbort {
				return nil, errors.WrapInvalid(cerr, "Synthesizer", "Synthesize", "coerce record")
			}
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	if total := len(rows) + skipped; skipped > 0 && float64(skipped)/float64(total) > o.skipThreshold {
		summary := fmt.Errorf("%w: %d of %d records", ErrSkipThresholdExceeded, skipped, total)
		return nil, errors.WrapInvalid(summary, "Synthesizer", "Synthesize", "coerce stream")
	}

	out, err := render(plan, rows)
	if err != nil {
		return nil, err
	}
	out.Records = len(rows)
	out.Skipped = skipped
	return out, nil
}

// render routes the coerced rows to the sink for the plan's target.
func render(plan *Plan, rows [][]any) (*Output, error) {
	switch plan.Spec.Format {
	case TargetCSV, TargetTSV:
		return renderDelimited(plan, rows)
	case TargetJSON:
		return renderJSON(plan, rows)
	case TargetJSONL:
		return renderJSONL(plan, rows)
	case TargetYAML:
		return renderYAML(plan, rows)
	case TargetXML:
		return renderXML(plan, rows)
	case TargetHTML:
		return renderHTML(plan, rows)
	case TargetMarkdown:
		return renderMarkdown(plan, rows)
	case TargetSQL:
		return renderSQL(plan, rows)
	case TargetINI:
		return renderINI(plan, rows)
	case TargetText:
		return renderText(plan, rows)
	case TargetArrow:
		return renderArrowSchema(plan, rows)
	default:
		return nil, errors.WrapInvalid(ErrUnknownTarget, "Synthesizer", "render",
			fmt.Sprintf("target %q", plan.Spec.Format))
	}
}
