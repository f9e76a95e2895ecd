package truth

import "strconv"

// compactThreshold is the first raw vertex id that gets compacted.
const compactThreshold = 1_000_000

// CompactIndex reduces a raw vertex identifier to the local index downstream
// consumers expect. Values below one million pass through. Larger values
// keep their first decimal digit followed by their last five decimal digits,
// e.g. 12345678 -> 145678.
//
// This is lossy: two raw ids that share a leading digit and their last five
// digits collide. The mapping must stay bit-for-bit stable because existing
// consumers key on it, so collisions are reported by CompactCollisions
// rather than avoided.
func CompactIndex(raw int64) int64 {
	if raw < compactThreshold {
		return raw
	}
	s := strconv.FormatInt(raw, 10)
	v, err := strconv.ParseInt(s[:1]+s[len(s)-5:], 10, 64)
	if err != nil {
		// unreachable: the digits of a non-negative int64 always parse
		panic(err)
	}
	return v
}

// CompactCollisions returns the compacted indices that more than one
// distinct raw id maps to, with the raw ids involved.
func CompactCollisions(raws []int64) map[int64][]int64 {
	seen := make(map[int64][]int64)
	for _, raw := range raws {
		idx := CompactIndex(raw)
		dup := false
		for _, r := range seen[idx] {
			if r == raw {
				dup = true
				break
			}
		}
		if !dup {
			seen[idx] = append(seen[idx], raw)
		}
	}
	for idx, rs := range seen {
		if len(rs) < 2 {
			delete(seen, idx)
		}
	}
	return seen
}
