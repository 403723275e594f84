package schema

import (
	"encoding/json"
	"sort"
	"strings"
)

// Type identifies one of the seven value shapes the learner distinguishes.
type Type string

const (
	TypeNull    Type = "null"
	TypeBoolean Type = "boolean"
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeString  Type = "string"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// ElementSuffix marks the path of array element values: a field "tags"
// holding arrays profiles its elements under "tags[]".
const ElementSuffix = "[]"

// kind is the histogram index of a Type.
type kind int

const (
	kindNull kind = iota
	kindBoolean
	kindInteger
	kindFloat
	kindString
	kindObject
	kindArray
	numKinds
)

// kindTypes maps histogram indexes back to type names.
var kindTypes = [numKinds]Type{
	TypeNull, TypeBoolean, TypeInteger, TypeFloat, TypeString, TypeObject, TypeArray,
}

// tieOrder ranks types for InferredType ties. Types that can absorb more
// values come first, so a tied field lands on the column type that loses
// the least data during synthesis.
var tieOrder = [numKinds]kind{
	kindString, kindFloat, kindInteger, kindBoolean, kindObject, kindArray, kindNull,
}

// TypeCounts is a per-field observation histogram over the seven types.
type TypeCounts [numKinds]uint64

// Count returns the number of observations recorded for t.
func (tc TypeCounts) Count(t Type) uint64 {
	for k, kt := range kindTypes {
		if kt == t {
			return tc[k]
		}
	}
	return 0
}

// Total returns the number of observations across all types.
func (tc TypeCounts) Total() uint64 {
	var total uint64
	for _, n := range tc {
		total += n
	}
	return total
}

// MarshalJSON renders the histogram as an object keyed by type name,
// omitting empty buckets.
func (tc TypeCounts) MarshalJSON() ([]byte, error) {
	counts := make(map[Type]uint64, numKinds)
	for k, n := range tc {
		if n > 0 {
			counts[kindTypes[k]] = n
		}
	}
	return json.Marshal(counts)
}

// UnmarshalJSON restores a histogram rendered by MarshalJSON. Unknown type
// names are dropped.
func (tc *TypeCounts) UnmarshalJSON(data []byte) error {
	var counts map[Type]uint64
	if err := json.Unmarshal(data, &counts); err != nil {
		return err
	}
	var restored TypeCounts
	for t, n := range counts {
		for k, kt := range kindTypes {
			if kt == t {
				restored[k] = n
			}
		}
	}
	*tc = restored
	return nil
}

// Profile is the learned shape of a record stream. Fields are keyed by
// dotted path; array elements profile under the parent path plus
// ElementSuffix. A finished profile is read-only: re-learning or merging
// produces a new one.
type Profile struct {
	Fields      map[string]*FieldProfile `json:"fields"`
	SampleCount uint64                   `json:"sampleCount"`
}

// NewProfile returns an empty profile.
func NewProfile() *Profile {
	return &Profile{Fields: make(map[string]*FieldProfile)}
}

// FieldProfile accumulates the observations for one field path.
//
// SampleCount is the number of observation opportunities at the field's
// level: the record count for record-level paths, or the enclosing array's
// total element count for paths under an ElementSuffix. Learn and Merge
// stamp it; the rate accessors depend on it.
type FieldProfile struct {
	Path         string       `json:"path"`
	TypeCounts   TypeCounts   `json:"typeCounts"`
	SampleCount  uint64       `json:"sampleCount"`
	Repeated     bool         `json:"repeated,omitempty"`
	ElementCount uint64       `json:"elementCount,omitempty"`
	Formats      FormatCounts `json:"formats,omitempty"`
	Distinct     *Sketch      `json:"-"`
}

// InferredType returns the histogram mode. Ties resolve in tieOrder:
// string, float, integer, boolean, object, array, null.
func (f *FieldProfile) InferredType() Type {
	best := kindNull
	var bestCount uint64
	for _, k := range tieOrder {
		if f.TypeCounts[k] > bestCount {
			best = k
			bestCount = f.TypeCounts[k]
		}
	}
	return kindTypes[best]
}

// Confidence returns the mode's share of all observations, in [0, 1].
func (f *FieldProfile) Confidence() float64 {
	total := f.TypeCounts.Total()
	if total == 0 {
		return 0
	}
	return float64(f.TypeCounts.Count(f.InferredType())) / float64(total)
}

// Present returns how many observations carried a value, explicit nulls
// included.
func (f *FieldProfile) Present() uint64 {
	return f.TypeCounts.Total()
}

// NullCount returns the number of explicit null observations.
func (f *FieldProfile) NullCount() uint64 {
	return f.TypeCounts[kindNull]
}

// NullRate returns the fraction of samples with no usable value: explicit
// nulls plus samples where the path was absent.
func (f *FieldProfile) NullRate() float64 {
	if f.SampleCount == 0 {
		return 0
	}
	present := f.Present()
	var absent uint64
	if f.SampleCount > present {
		absent = f.SampleCount - present
	}
	return float64(absent+f.NullCount()) / float64(f.SampleCount)
}

// DistinctEstimate returns the estimated number of distinct scalar values
// observed at this path.
func (f *FieldProfile) DistinctEstimate() uint64 {
	return f.Distinct.Estimate()
}

// clone returns a deep copy sharing no state with f.
func (f *FieldProfile) clone() *FieldProfile {
	c := *f
	c.Distinct = f.Distinct.clone()
	if f.Formats != nil {
		c.Formats = make(FormatCounts, len(f.Formats))
		for format, n := range f.Formats {
			c.Formats[format] = n
		}
	}
	return &c
}

// field returns the profile for path, creating it on first sight.
func (p *Profile) field(path string) *FieldProfile {
	f, ok := p.Fields[path]
	if !ok {
		f = &FieldProfile{Path: path}
		p.Fields[path] = f
	}
	return f
}

// levelCount returns the number of observation opportunities for a path:
// the record count for record-level paths, or the enclosing array's element
// count for paths under an ElementSuffix.
func (p *Profile) levelCount(path string) uint64 {
	i := strings.LastIndex(path, ElementSuffix)
	if i < 0 {
		return p.SampleCount
	}
	parent, ok := p.Fields[path[:i]]
	if !ok {
		return 0
	}
	return parent.ElementCount
}

// finalize stamps every field with its opportunity count so the rate
// accessors are self-contained.
func (p *Profile) finalize() {
	for path, f := range p.Fields {
		f.SampleCount = p.levelCount(path)
	}
}

// ScalarPaths returns the sorted record-level paths whose inferred type is
// a scalar. Element paths and fields inferred as object, array, or null are
// excluded.
func (p *Profile) ScalarPaths() []string {
	paths := make([]string, 0, len(p.Fields))
	for path, f := range p.Fields {
		if strings.Contains(path, ElementSuffix) {
			continue
		}
		switch f.InferredType() {
		case TypeBoolean, TypeInteger, TypeFloat, TypeString:
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}
