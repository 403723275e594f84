package schema

import (
	"hash/fnv"
	"math"
	"sort"
)

// DefaultSketchSize is the number of minimum hashes a Sketch retains.
const DefaultSketchSize = 1024

// Sketch estimates distinct-value counts with a K-minimum-values summary
// over FNV-64a hashes. Estimates are exact while fewer than K distinct
// values have been added, and unions are order-independent: any sequence
// of Add and Union calls covering the same value set produces the same
// sketch state.
type Sketch struct {
	size   int
	hashes []uint64 // sorted ascending, no duplicates
}

// NewSketch returns an empty sketch retaining DefaultSketchSize hashes.
func NewSketch() *Sketch {
	return &Sketch{size: DefaultSketchSize}
}

// Add folds one value, given in canonical string form, into the sketch.
func (s *Sketch) Add(value string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(value))
	s.insert(h.Sum64())
}

// insert places h in the sorted minimum set, dropping the largest kept
// hash when the sketch is full.
func (s *Sketch) insert(h uint64) {
	i := sort.Search(len(s.hashes), func(i int) bool { return s.hashes[i] >= h })
	if i < len(s.hashes) && s.hashes[i] == h {
		return
	}
	if len(s.hashes) < s.size {
		s.hashes = append(s.hashes, 0)
		copy(s.hashes[i+1:], s.hashes[i:])
		s.hashes[i] = h
		return
	}
	if i == len(s.hashes) {
		return
	}
	copy(s.hashes[i+1:], s.hashes[i:len(s.hashes)-1])
	s.hashes[i] = h
}

// Estimate returns the estimated number of distinct values added. Below
// the sketch size the count is exact.
func (s *Sketch) Estimate() uint64 {
	if s == nil {
		return 0
	}
	n := len(s.hashes)
	if n < s.size {
		return uint64(n)
	}
	kth := float64(s.hashes[n-1]) + 1
	return uint64(float64(n-1) * (math.Ldexp(1, 64) / kth))
}

// Union returns a new sketch covering the values of both inputs. Neither
// input is modified; a nil input yields a copy of the other.
func (s *Sketch) Union(other *Sketch) *Sketch {
	if s == nil {
		return other.clone()
	}
	if other == nil {
		return s.clone()
	}
	a, b := s.hashes, other.hashes
	out := make([]uint64, 0, min(s.size, len(a)+len(b)))
	i, j := 0, 0
	for (i < len(a) || j < len(b)) && len(out) < s.size {
		switch {
		case j == len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i == len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	if len(out) == 0 {
		out = nil
	}
	return &Sketch{size: s.size, hashes: out}
}

// clone returns an independent copy of the sketch.
func (s *Sketch) clone() *Sketch {
	if s == nil {
		return nil
	}
	c := &Sketch{size: s.size}
	if s.hashes != nil {
		c.hashes = append([]uint64(nil), s.hashes...)
	}
	return c
}
