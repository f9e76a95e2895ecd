// Package chunk splits one event's parallel arrays into bounded sub-event
// windows so that no single sink write carries more than a fixed number of
// entries per array.
package chunk

import (
	"fmt"

	"github.com/roach88/ndconvert/internal/column"
)

// Default capacities. Truth columns fan out per hit, so runs that carry them
// use the smaller window.
const (
	DefaultCapacity     = 10_000
	DefaultDataCapacity = 100_000
)

// Chunk is one window of an event's arrays, tagged with its sub-event index.
type Chunk struct {
	Index int
	Cols  []column.Named
}

// Longest returns the length of the longest array.
func Longest(cols []column.Named) int {
	n := 0
	for _, c := range cols {
		n = max(n, c.Len())
	}
	return n
}

// Count returns how many chunks Split produces for n entries:
// floor(n/capacity) + 1. A trailing empty chunk appears when n is a
// multiple of capacity, including n == 0.
func Count(n, capacity int) int {
	return n/capacity + 1
}

// Split cuts the arrays into Count(Longest(cols), capacity) windows of
// capacity entries. Each window is taken from every array independently and
// clipped to that array's own length, so arrays shorter than the longest
// simply run out early. Column order is preserved in every chunk.
func Split(cols []column.Named, capacity int) ([]Chunk, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("chunk capacity must be positive, got %d", capacity)
	}

	n := Count(Longest(cols), capacity)
	chunks := make([]Chunk, n)
	for k := range chunks {
		lo, hi := k*capacity, (k+1)*capacity
		window := make([]column.Named, len(cols))
		for i, c := range cols {
			window[i] = column.Named{Name: c.Name, Array: c.Slice(lo, hi)}
		}
		chunks[k] = Chunk{Index: k, Cols: window}
	}
	return chunks, nil
}

// Join concatenates chunks in index order and returns the original arrays.
func Join(chunks []Chunk) ([]column.Named, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	out := make([]column.Named, len(chunks[0].Cols))
	for i, c := range chunks[0].Cols {
		out[i].Name = c.Name
	}
	for k, ch := range chunks {
		if ch.Index != k {
			return nil, fmt.Errorf("join: chunk %d out of order (index %d)", k, ch.Index)
		}
		if len(ch.Cols) != len(out) {
			return nil, fmt.Errorf("join: chunk %d has %d columns, want %d", k, len(ch.Cols), len(out))
		}
		for i, c := range ch.Cols {
			if c.Name != out[i].Name {
				return nil, fmt.Errorf("join: chunk %d column %d is %q, want %q", k, i, c.Name, out[i].Name)
			}
			joined, err := column.Concat(out[i].Array, c.Array)
			if err != nil {
				return nil, fmt.Errorf("join: column %q: %w", c.Name, err)
			}
			out[i].Array = joined
		}
	}
	return out, nil
}
