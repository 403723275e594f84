package schema

// Merge combines two profiles learned over partitions of a record stream.
// It is associative and commutative, so shard profiles fold in any order
// to the same result, and learning over a concatenation equals merging the
// partition profiles. Neither input is modified; a nil input contributes
// nothing.
func Merge(a, b *Profile) *Profile {
	merged := NewProfile()
	if a != nil {
		merged.SampleCount += a.SampleCount
		for path, f := range a.Fields {
			merged.Fields[path] = f.clone()
		}
	}
	if b != nil {
		merged.SampleCount += b.SampleCount
		for path, f := range b.Fields {
			if existing, ok := merged.Fields[path]; ok {
				existing.add(f)
			} else {
				merged.Fields[path] = f.clone()
			}
		}
	}
	// A field one side never saw still accrues that side's opportunities,
	// so sample counts come from both inputs regardless of where the field
	// appeared.
	for path, f := range merged.Fields {
		var samples uint64
		if a != nil {
			samples += a.levelCount(path)
		}
		if b != nil {
			samples += b.levelCount(path)
		}
		f.SampleCount = samples
	}
	return merged
}

// add folds other's observations into f. The distinct sketches union into
// a fresh sketch so neither input is aliased.
func (f *FieldProfile) add(other *FieldProfile) {
	for i := range f.TypeCounts {
		f.TypeCounts[i] += other.TypeCounts[i]
	}
	f.ElementCount += other.ElementCount
	f.Repeated = f.Repeated || other.Repeated
	f.Distinct = f.Distinct.Union(other.Distinct)
	if len(other.Formats) > 0 {
		if f.Formats == nil {
			f.Formats = make(FormatCounts, len(other.Formats))
		}
		for format, n := range other.Formats {
			f.Formats[format] += n
		}
	}
}
