package mood

import (
	"math"
)

// Resolver maps classifier output onto a canonical mood. It never fails:
// missing or unrecognised output resolves to the configured fallback.
type Resolver struct {
	fallback Label
}

// NewResolver creates a Resolver. An invalid fallback is replaced by Happy.
func NewResolver(fallback Label) *Resolver {
	if !fallback.Valid() {
		fallback = Happy
	}
	return &Resolver{fallback: fallback}
}

// Default returns the fallback label.
func (r *Resolver) Default() Label {
	return r.fallback
}

// Resolve selects the label whose score is highest. Ties go to the lowest
// index. Empty scores, all-NaN scores, or a winning index outside the table
// resolve to the fallback.
func (r *Resolver) Resolve(scores []float32, table Table) Label {
	i, ok := Argmax(scores)
	if !ok {
		return r.fallback
	}
	return r.ResolveIndex(i, table)
}

// ResolveIndex returns table[i], or the fallback when i is out of range.
func (r *Resolver) ResolveIndex(i int, table Table) Label {
	l, ok := table.At(i)
	if !ok {
		return r.fallback
	}
	return l
}

// ResolveText matches a label string case-insensitively against table.
// Labels that are unknown or not in table resolve to the fallback.
func (r *Resolver) ResolveText(s string, table Table) Label {
	l, ok := Parse(s)
	if !ok || table.Index(l) < 0 {
		return r.fallback
	}
	return l
}

// Argmax returns the index of the first maximum score, skipping NaN.
// It reports false when no comparable score exists.
func Argmax(scores []float32) (int, bool) {
	best := -1
	for i, s := range scores {
		if math.IsNaN(float64(s)) {
			continue
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best, best >= 0
}
