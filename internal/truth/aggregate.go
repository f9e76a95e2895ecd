package truth

import (
	"context"
	"fmt"

	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/resolve"
)

// HitTruth holds one hit's truth contributions as parallel arrays, one entry
// per contributing segment. A hit without contributions holds exactly one
// sentinel entry in every array.
type HitTruth struct {
	Fractions       []float32
	PDG             []int32
	ParticleID      []int64
	ParticleIDLocal []int64
	VertexID        []int64
	SegmentID       []int64
}

// Len returns the number of entries, sentinel included.
func (h HitTruth) Len() int {
	return len(h.Fractions)
}

// IsSentinel reports whether the hit had no resolvable contribution.
func (h HitTruth) IsSentinel() bool {
	return len(h.Fractions) == 1 && h.Fractions[0] == record.SentinelFloat &&
		len(h.PDG) == 1 && int64(h.PDG[0]) == record.SentinelInt
}

// Columns returns the hit's arrays as named columns.
func (h HitTruth) Columns() []column.Named {
	return []column.Named{
		{Name: "hit_packetFrac", Array: column.Vec[float32](h.Fractions)},
		{Name: "hit_particleID", Array: column.Vec[int64](h.ParticleID)},
		{Name: "hit_particleIDLocal", Array: column.Vec[int64](h.ParticleIDLocal)},
		{Name: "hit_pdg", Array: column.Vec[int32](h.PDG)},
		{Name: "hit_vertexID", Array: column.Vec[int64](h.VertexID)},
		{Name: "hit_segmentID", Array: column.Vec[int64](h.SegmentID)},
	}
}

func sentinelTruth() HitTruth {
	return HitTruth{
		Fractions:       []float32{record.SentinelFloat},
		PDG:             []int32{int32(record.SentinelInt)},
		ParticleID:      []int64{record.SentinelInt},
		ParticleIDLocal: []int64{record.SentinelInt},
		VertexID:        []int64{record.SentinelInt},
		SegmentID:       []int64{record.SentinelInt},
	}
}

// Aggregator resolves per-hit truth through a Resolver.
type Aggregator struct {
	res *resolve.Resolver
	src resolve.Source
}

// NewAggregator creates an Aggregator reading links from src.
func NewAggregator(res *resolve.Resolver, src resolve.Source) *Aggregator {
	return &Aggregator{res: res, src: src}
}

// Source returns the link source the aggregator reads.
func (a *Aggregator) Source() resolve.Source {
	return a.src
}

// Aggregate returns one HitTruth per hit id, in hit order.
//
// Missing slots are padding and are skipped, as are links with a zero
// fraction. Fractions are copied as stored, never renormalized, so a hit's
// fractions may sum to less than one.
func (a *Aggregator) Aggregate(ctx context.Context, hitIDs []int64, kind record.HitKind) ([]HitTruth, error) {
	links, err := a.res.HitLinks(ctx, hitIDs, kind, a.src)
	if err != nil {
		return nil, fmt.Errorf("aggregate truth: %w", err)
	}

	perHit := make([][]record.Link, len(hitIDs))
	var segIDs []int64
	for i, slots := range links {
		for _, l := range record.PresentLinks(slots) {
			if l.Fraction == 0 {
				continue
			}
			perHit[i] = append(perHit[i], l)
			segIDs = append(segIDs, l.SegmentID)
		}
	}

	segs, err := a.res.Store().Segments(ctx, segIDs)
	if err != nil {
		return nil, fmt.Errorf("aggregate truth: %w", err)
	}

	out := make([]HitTruth, len(hitIDs))
	k := 0
	for i, hitLinks := range perHit {
		if len(hitLinks) == 0 {
			out[i] = sentinelTruth()
			continue
		}
		var ht HitTruth
		for _, l := range hitLinks {
			seg := segs[k]
			k++
			ht.Fractions = append(ht.Fractions, l.Fraction)
			ht.PDG = append(ht.PDG, seg.PDG)
			ht.ParticleID = append(ht.ParticleID, seg.FileTrajID)
			ht.ParticleIDLocal = append(ht.ParticleIDLocal, seg.TrajID)
			ht.VertexID = append(ht.VertexID, seg.VertexID)
			ht.SegmentID = append(ht.SegmentID, seg.SegmentID)
		}
		out[i] = ht
	}
	return out, nil
}

// Flat is the per-event concatenation of every hit's truth, with Matches
// giving the entry count of each hit so the arrays can be regrouped.
type Flat struct {
	HitTruth
	Matches []uint16
}

// Flatten concatenates per-hit truth in hit order. A sentinel hit
// contributes its single sentinel entry and a match count of one.
func Flatten(hits []HitTruth) Flat {
	var f Flat
	f.Matches = make([]uint16, len(hits))
	for i, h := range hits {
		f.Matches[i] = uint16(h.Len())
		f.Fractions = append(f.Fractions, h.Fractions...)
		f.PDG = append(f.PDG, h.PDG...)
		f.ParticleID = append(f.ParticleID, h.ParticleID...)
		f.ParticleIDLocal = append(f.ParticleIDLocal, h.ParticleIDLocal...)
		f.VertexID = append(f.VertexID, h.VertexID...)
		f.SegmentID = append(f.SegmentID, h.SegmentID...)
	}
	return f
}

// CheckAligned verifies that every hit's arrays have equal length.
func CheckAligned(hits []HitTruth) error {
	for i, h := range hits {
		if err := column.CheckAligned(fmt.Sprintf("hit %d truth", i), h.Columns()...); err != nil {
			return err
		}
	}
	return nil
}

// Regroup splits flattened truth back into per-hit arrays, hit i taking the
// next Matches[i] entries. A hit with zero matches gets empty arrays. The
// match counts must sum to the flattened length.
func Regroup(f Flat) ([]HitTruth, error) {
	if err := column.CheckAligned("flattened hit truth", f.Columns()...); err != nil {
		return nil, err
	}
	total := 0
	for _, m := range f.Matches {
		total += int(m)
	}
	if total != f.Len() {
		return nil, &column.AlignmentError{
			Group:   "matches",
			Lengths: map[string]int{"sum(matches)": total, "hit_packetFrac": f.Len()},
		}
	}

	out := make([]HitTruth, len(f.Matches))
	lo := 0
	for i, m := range f.Matches {
		hi := lo + int(m)
		out[i] = HitTruth{
			Fractions:       f.Fractions[lo:hi:hi],
			PDG:             f.PDG[lo:hi:hi],
			ParticleID:      f.ParticleID[lo:hi:hi],
			ParticleIDLocal: f.ParticleIDLocal[lo:hi:hi],
			VertexID:        f.VertexID[lo:hi:hi],
			SegmentID:       f.SegmentID[lo:hi:hi],
		}
		lo = hi
	}
	return out, nil
}
