package schema

import (
	"sort"
	"strings"
)

// Proposal is the external schema shape derived from a finished profile.
// Hint lists are sorted and JSON map keys marshal in sorted order, so a
// given profile always renders the same bytes.
type Proposal struct {
	Fields map[string]FieldProposal `json:"fields"`
	Hints  Hints                    `json:"hints"`
}

// FieldProposal summarizes one field for consumers of a proposal.
type FieldProposal struct {
	Type       Type    `json:"type"`
	Confidence float64 `json:"confidence"`
	NullRate   float64 `json:"nullRate"`
	Format     Format  `json:"format,omitempty"`
	Repeated   bool    `json:"repeated,omitempty"`
}

// Hints carries the optimization and shape hints read off a profile.
type Hints struct {
	PrimaryKeyCandidates []string `json:"primaryKeyCandidates"`
	IndexCandidates      []string `json:"indexCandidates"`
	IDFields             []string `json:"idFields"`
	TimestampFields      []string `json:"timestampFields"`
	NestedObjects        []string `json:"nestedObjects"`
	ArrayFields          []string `json:"arrayFields"`
}

// idNames are exact field names that mark identifiers, next to the
// *_id suffix.
var idNames = map[string]bool{"id": true, "uuid": true, "key": true}

// timestampNameParts flag a field as time-bearing when its name contains
// one of them.
var timestampNameParts = []string{"time", "date", "created", "updated"}

// Proposal derives the external schema proposal from the profile.
func (p *Profile) Proposal() *Proposal {
	proposal := &Proposal{
		Fields: make(map[string]FieldProposal, len(p.Fields)),
		Hints: Hints{
			PrimaryKeyCandidates: []string{},
			IndexCandidates:      []string{},
			IDFields:             []string{},
			TimestampFields:      []string{},
			NestedObjects:        []string{},
			ArrayFields:          []string{},
		},
	}

	pk := make(map[string]bool)
	for path, f := range p.Fields {
		proposal.Fields[path] = FieldProposal{
			Type:       f.InferredType(),
			Confidence: f.Confidence(),
			NullRate:   f.NullRate(),
			Format:     f.Format(),
			Repeated:   f.Repeated,
		}
		if f.isPrimaryKeyCandidate() {
			pk[path] = true
			proposal.Hints.PrimaryKeyCandidates = append(proposal.Hints.PrimaryKeyCandidates, path)
		}
		if f.isIDField() {
			proposal.Hints.IDFields = append(proposal.Hints.IDFields, path)
		}
		if f.isTimestampField() {
			proposal.Hints.TimestampFields = append(proposal.Hints.TimestampFields, path)
		}
		if f.InferredType() == TypeObject {
			proposal.Hints.NestedObjects = append(proposal.Hints.NestedObjects, path)
		}
		if f.Repeated {
			proposal.Hints.ArrayFields = append(proposal.Hints.ArrayFields, path)
		}
	}

	index := make(map[string]bool)
	for _, path := range proposal.Hints.IDFields {
		if !pk[path] {
			index[path] = true
		}
	}
	for _, path := range proposal.Hints.TimestampFields {
		if !pk[path] {
			index[path] = true
		}
	}
	for path := range index {
		proposal.Hints.IndexCandidates = append(proposal.Hints.IndexCandidates, path)
	}

	sort.Strings(proposal.Hints.PrimaryKeyCandidates)
	sort.Strings(proposal.Hints.IndexCandidates)
	sort.Strings(proposal.Hints.IDFields)
	sort.Strings(proposal.Hints.TimestampFields)
	sort.Strings(proposal.Hints.NestedObjects)
	sort.Strings(proposal.Hints.ArrayFields)
	return proposal
}

// isPrimaryKeyCandidate reports whether every sample held a distinct
// non-null value at this path.
func (f *FieldProfile) isPrimaryKeyCandidate() bool {
	return f.SampleCount > 0 && f.NullRate() == 0 && f.DistinctEstimate() == f.SampleCount
}

// isIDField reports whether the field is named like an identifier and at
// least half of its non-null values are unique.
func (f *FieldProfile) isIDField() bool {
	name := strings.ToLower(lastSegment(f.Path))
	if !idNames[name] && !strings.HasSuffix(name, "_id") {
		return false
	}
	nonNull := f.Present() - f.NullCount()
	return nonNull > 0 && 2*f.DistinctEstimate() >= nonNull
}

// isTimestampField reports whether the field carries time values, by
// detected format or by name.
func (f *FieldProfile) isTimestampField() bool {
	if format := f.Format(); format == FormatDate || format == FormatTimestamp {
		return true
	}
	name := strings.ToLower(lastSegment(f.Path))
	for _, part := range timestampNameParts {
		if strings.Contains(name, part) {
			return true
		}
	}
	return false
}

// lastSegment returns the final path component, with any element suffix
// removed.
func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, ElementSuffix)
}
