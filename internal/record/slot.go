package record

// Slot is one position of a ragged relation array: either a present value or
// a padding hole. The zero Slot is Missing.
type Slot[T any] struct {
	value T
	ok    bool
}

// Present wraps a value that exists in the store.
func Present[T any](v T) Slot[T] {
	return Slot[T]{value: v, ok: true}
}

// Missing returns an empty slot.
func Missing[T any]() Slot[T] {
	return Slot[T]{}
}

// Get returns the value and whether it is present.
func (s Slot[T]) Get() (T, bool) {
	return s.value, s.ok
}

// IsPresent reports whether the slot holds a value.
func (s Slot[T]) IsPresent() bool {
	return s.ok
}

// DecodeLinks tags each position of a raw (segment ids, fractions) pair of
// padded arrays. A position is Missing when the raw pair is exactly (0, 0),
// or when only one of the arrays reaches that far. Everything else is
// Present, including segment 0 with a non-zero fraction.
func DecodeLinks(segmentIDs []int64, fractions []float32) []Slot[Link] {
	n := max(len(segmentIDs), len(fractions))
	out := make([]Slot[Link], n)
	for i := 0; i < n; i++ {
		if i >= len(segmentIDs) || i >= len(fractions) {
			continue
		}
		seg, frac := segmentIDs[i], fractions[i]
		if seg == 0 && frac == 0 {
			continue
		}
		out[i] = Present(Link{SegmentID: seg, Fraction: frac})
	}
	return out
}

// PresentLinks returns the present links in order.
func PresentLinks(slots []Slot[Link]) []Link {
	out := make([]Link, 0, len(slots))
	for _, s := range slots {
		if l, ok := s.Get(); ok {
			out = append(out, l)
		}
	}
	return out
}
