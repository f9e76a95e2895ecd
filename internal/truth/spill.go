package truth

import (
	"context"
	"fmt"

	"github.com/roach88/ndconvert/internal/flowfile"
	"github.com/roach88/ndconvert/internal/record"
)

// Particle is a trajectory ready for output: energy and momentum in GeV,
// plus the compacted index of its vertex.
type Particle struct {
	ID          int64
	IDLocal     int64
	PDG         int32
	Mother      int64
	VertexID    int64
	VertexIndex int64
	Energy      float32
	P           [3]float32
	Start       [3]float32
	End         [3]float32
}

// Interaction is a classified vertex ready for output, energies in GeV.
type Interaction struct {
	VertexID int64
	Index    int64
	PDG      int32
	Energy   float32
	P        [3]float32
	Pos      [3]float32
	Mode     int32
	IsCC     bool
}

// SpillTruth is every particle and interaction sharing one spill id.
type SpillTruth struct {
	SpillID      int64
	Particles    []Particle
	Interactions []Interaction
}

// SpillExtractor collects spill truth by scanning the trajectory and
// interaction tables.
type SpillExtractor struct {
	store flowfile.Store
}

// NewSpillExtractor creates a SpillExtractor over store.
func NewSpillExtractor(store flowfile.Store) *SpillExtractor {
	return &SpillExtractor{store: store}
}

// Extract returns the truth of spillID, in table order. Both tables are
// scanned in full and filtered on equality; no index is assumed.
func (s *SpillExtractor) Extract(ctx context.Context, spillID int64) (SpillTruth, error) {
	st := SpillTruth{SpillID: spillID}

	trajs, err := s.store.Trajectories(ctx)
	if err != nil {
		return st, fmt.Errorf("extract spill %d: %w", spillID, err)
	}
	for _, t := range trajs {
		if t.EventID != spillID {
			continue
		}
		st.Particles = append(st.Particles, Particle{
			ID:          t.FileTrajID,
			IDLocal:     t.TrajID,
			PDG:         t.PDG,
			Mother:      t.ParentID,
			VertexID:    t.VertexID,
			VertexIndex: CompactIndex(t.VertexID),
			Energy:      t.EStart * record.MeVToGeV,
			P: [3]float32{
				t.PXYZStart[0] * record.MeVToGeV,
				t.PXYZStart[1] * record.MeVToGeV,
				t.PXYZStart[2] * record.MeVToGeV,
			},
			Start: t.XYZStart,
			End:   t.XYZEnd,
		})
	}

	vtxs, err := s.store.Interactions(ctx)
	if err != nil {
		return st, fmt.Errorf("extract spill %d: %w", spillID, err)
	}
	for _, v := range vtxs {
		if v.EventID != spillID {
			continue
		}
		mode, isCC := Classify(v)
		st.Interactions = append(st.Interactions, Interaction{
			VertexID: v.VertexID,
			Index:    CompactIndex(v.VertexID),
			PDG:      v.NuPDG,
			Energy:   v.Enu * record.MeVToGeV,
			P: [3]float32{
				v.Nu4Mom[0] * record.MeVToGeV,
				v.Nu4Mom[1] * record.MeVToGeV,
				v.Nu4Mom[2] * record.MeVToGeV,
			},
			Pos:  [3]float32{v.X, v.Y, v.Z},
			Mode: mode,
			IsCC: isCC,
		})
	}

	return st, nil
}

// VertexIDs returns every raw vertex id the spill references, particles
// first, for collision checks on the compacted indices.
func (st SpillTruth) VertexIDs() []int64 {
	ids := make([]int64, 0, len(st.Particles)+len(st.Interactions))
	for _, p := range st.Particles {
		ids = append(ids, p.VertexID)
	}
	for _, v := range st.Interactions {
		ids = append(ids, v.VertexID)
	}
	return ids
}
