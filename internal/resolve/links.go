package resolve

import (
	"context"
	"fmt"

	"github.com/roach88/ndconvert/internal/record"
)

// Source selects which stored mapping attributes hits to segments.
type Source int

const (
	// Packets pairs each hit packet's segment references with the packet's
	// padded fraction row.
	Packets Source = iota
	// Backtrack reads the per-hit backtrack table directly.
	Backtrack
)

func (s Source) String() string {
	if s == Backtrack {
		return "backtrack"
	}
	return "packet"
}

// ParseSource parses "packet" or "backtrack".
func ParseSource(s string) (Source, error) {
	switch s {
	case "packet", "packets":
		return Packets, nil
	case "backtrack":
		return Backtrack, nil
	default:
		return 0, fmt.Errorf("unknown truth source %q (want packet or backtrack)", s)
	}
}

// EventHits fetches the hits of one event.
func (r *Resolver) EventHits(ctx context.Context, eventID int64, kind record.HitKind) ([]record.Hit, error) {
	ids, err := r.Resolve(ctx, []int64{eventID}, EventHits(kind))
	if err != nil {
		return nil, err
	}
	hits, err := r.store.Hits(ctx, kind.Table(), ids[0])
	if err != nil {
		return nil, fmt.Errorf("fetch hits of event %d: %w", eventID, err)
	}
	return hits, nil
}

// HitLinks returns, per hit, the tagged truth links in stored order. Padding
// positions come back as Missing slots; they are never dropped here.
func (r *Resolver) HitLinks(ctx context.Context, hitIDs []int64, kind record.HitKind, src Source) ([][]record.Slot[record.Link], error) {
	if src == Backtrack {
		return r.backtrackLinks(ctx, hitIDs, kind)
	}
	return r.packetLinks(ctx, hitIDs, kind)
}

func (r *Resolver) backtrackLinks(ctx context.Context, hitIDs []int64, kind record.HitKind) ([][]record.Slot[record.Link], error) {
	rowIDs, err := r.Resolve(ctx, hitIDs, HitBacktrack(kind))
	if err != nil {
		return nil, err
	}

	out := make([][]record.Slot[record.Link], len(hitIDs))
	for i, ids := range rowIDs {
		rows, err := r.store.Fractions(ctx, kind.BacktrackTable(), ids)
		if err != nil {
			return nil, fmt.Errorf("backtrack of hit %d: %w", hitIDs[i], err)
		}
		slots := []record.Slot[record.Link]{}
		for _, row := range rows {
			slots = append(slots, record.DecodeLinks(row.SegmentIDs, row.Fractions)...)
		}
		out[i] = slots
	}
	return out, nil
}

func (r *Resolver) packetLinks(ctx context.Context, hitIDs []int64, kind record.HitKind) ([][]record.Slot[record.Link], error) {
	packetIDs, err := r.Resolve(ctx, hitIDs, HitPackets(kind))
	if err != nil {
		return nil, err
	}

	out := make([][]record.Slot[record.Link], len(hitIDs))
	for i, packets := range packetIDs {
		segs, err := r.store.Children(ctx, record.PacketsTable, record.SegmentsTable, packets)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", HitSegments(kind), err)
		}
		fracRows, err := r.store.Children(ctx, record.PacketsTable, record.PacketFractionTable, packets)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", HitPacketFractions(kind), err)
		}

		slots := []record.Slot[record.Link]{}
		for p := range packets {
			rows, err := r.store.Fractions(ctx, record.PacketFractionTable, fracRows[p])
			if err != nil {
				return nil, fmt.Errorf("packet fractions of hit %d: %w", hitIDs[i], err)
			}
			var fracs []float32
			for _, row := range rows {
				fracs = append(fracs, row.Fractions...)
			}
			slots = append(slots, record.DecodeLinks(segs[p], fracs)...)
		}
		out[i] = slots
	}
	return out, nil
}

// FirstSegment returns the segment of the first present link among the
// hits, in hit order. ok is false when no hit has any link.
func (r *Resolver) FirstSegment(ctx context.Context, hitIDs []int64, kind record.HitKind, src Source) (seg record.Segment, ok bool, err error) {
	links, err := r.HitLinks(ctx, hitIDs, kind, src)
	if err != nil {
		return record.Segment{}, false, err
	}
	for _, slots := range links {
		for _, s := range slots {
			l, present := s.Get()
			if !present {
				continue
			}
			segs, err := r.store.Segments(ctx, []int64{l.SegmentID})
			if err != nil {
				return record.Segment{}, false, fmt.Errorf("first segment: %w", err)
			}
			return segs[0], true, nil
		}
	}
	return record.Segment{}, false, nil
}
