package spatial

// InverseBlockIterator enumerates the linear node indices in [0,4096)
// that are NOT inside a given relative sub-area (an Area with
// coordinates already expressed in [0,15]^3, e.g. the result of
// RelBlockOverlap). It is used by edit operators that apply "outside an
// area within a partially-covered block" (invert semantics against a
// region smaller than the whole block).
type InverseBlockIterator struct {
	sub Area
	i   int
}

// NewInverseBlockIterator returns an iterator over [0,4096) skipping the
// indices inside sub.
func NewInverseBlockIterator(sub Area) *InverseBlockIterator {
	return &InverseBlockIterator{sub: sub, i: 0}
}

// Next returns the next linear index outside sub, and true; or 0 and
// false once every index in [0,4096) has been considered.
func (it *InverseBlockIterator) Next() (int, bool) {
	for it.i < 4096 {
		idx := it.i
		it.i++
		pos := FromLinearIndex(idx)
		if !it.sub.Contains(pos) {
			return idx, true
		}
	}
	return 0, false
}
