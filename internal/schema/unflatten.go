package schema

import (
	"fmt"

	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/truth"
)

// flatHeader is the number of per-row scalar columns that open every flat
// batch: run, subrun, event, unix_ts, event_start_t, event_end_t, subevent.
const flatHeader = 7

// FlatRow is one row of the subevents table read back: the event it
// belongs to, its sub-event index and its window of event arrays.
type FlatRow struct {
	Event    record.Event
	Subevent int
	Cols     []column.Named
}

// HasTruth reports whether the row carries MC truth columns.
func (r FlatRow) HasTruth() bool {
	for _, c := range r.Cols {
		if c.Name == "matches" {
			return true
		}
	}
	return false
}

// ParseFlatRow splits a single-row subevents batch into its header and its
// window columns, unwrapped back to scalar arrays.
func ParseFlatRow(b *column.Batch) (FlatRow, error) {
	var row FlatRow
	if b.Rows() != 1 {
		return row, fmt.Errorf("flat row: batch has %d rows, want 1", b.Rows())
	}
	if len(b.Cols) < flatHeader {
		return row, fmt.Errorf("flat row: %d columns, want at least %d", len(b.Cols), flatHeader)
	}

	head := b.Cols[:flatHeader]
	var err error
	get64 := func(i int, name string) int64 {
		if err != nil {
			return 0
		}
		var v int64
		v, err = cell[int64](head[i], name)
		return v
	}
	row.Event.ID = get64(2, "event")
	row.Event.UnixTs = get64(3, "unix_ts")
	row.Event.TsStart = get64(4, "event_start_t")
	row.Event.TsEnd = get64(5, "event_end_t")
	if err != nil {
		return row, err
	}
	sub, err := cell[int32](head[6], "subevent")
	if err != nil {
		return row, err
	}
	row.Subevent = int(sub)

	row.Cols = make([]column.Named, 0, len(b.Cols)-flatHeader)
	for _, c := range b.Cols[flatHeader:] {
		v, err := column.Unwrap(c.Array)
		if err != nil {
			return row, fmt.Errorf("flat row: column %q: %w", c.Name, err)
		}
		row.Cols = append(row.Cols, column.Named{Name: c.Name, Array: v})
	}
	return row, nil
}

// cell reads the single element of a single-row list column.
func cell[T column.Elem](c column.Named, name string) (T, error) {
	var zero T
	if c.Name != name {
		return zero, fmt.Errorf("flat row: column %q where %q expected", c.Name, name)
	}
	l, ok := c.Array.(column.List[T])
	if !ok || len(l) != 1 || len(l[0]) != 1 {
		return zero, fmt.Errorf("flat row: column %q does not hold one %s", name, column.Vec[T]{}.Type())
	}
	return l[0][0], nil
}

// arrays indexes joined flat columns by name with typed access.
type arrays map[string]column.Array

func vec[T column.Elem](a arrays, name string) (column.Vec[T], error) {
	c, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("missing column %q", name)
	}
	v, ok := c.(column.Vec[T])
	if !ok {
		return nil, fmt.Errorf("column %q is %s %s, want %s scalar", name, c.Type(), c.Shape(), column.Vec[T]{}.Type())
	}
	return v, nil
}

// FlatRecord rebuilds the builder input of one event from its joined flat
// arrays, the inverse of flat output. The hits become a single block of
// kind. Flat output does not carry hit ids or the spill id, so both are
// set to record.SentinelInt. In MC mode the flattened truth is regrouped
// per hit by the matches column.
func FlatRecord(ev record.Event, kind record.HitKind, cols []column.Named, isData bool) (Record, error) {
	a := make(arrays, len(cols))
	for _, c := range cols {
		a[c.Name] = c.Array
	}

	hits, err := hitsOf(a)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Event: ev, Blocks: []HitBlock{{Kind: kind, Hits: hits}}}
	if isData {
		return rec, nil
	}

	flat, err := flatTruthOf(a)
	if err != nil {
		return Record{}, err
	}
	if len(flat.Matches) != len(hits) {
		return Record{}, &column.AlignmentError{
			Group:   "matches",
			Lengths: map[string]int{"hits": len(hits), "matches": len(flat.Matches)},
		}
	}
	rec.Blocks[0].Truth, err = truth.Regroup(flat)
	if err != nil {
		return Record{}, err
	}

	st := truth.SpillTruth{SpillID: record.SentinelInt}
	if st.Particles, err = particlesOf(a); err != nil {
		return Record{}, err
	}
	if st.Interactions, err = interactionsOf(a); err != nil {
		return Record{}, err
	}
	rec.Spill = &st
	return rec, nil
}

func hitsOf(a arrays) ([]record.Hit, error) {
	names := []string{"x", "y", "z", "ts", "charge", "E"}
	vs := make([]column.Vec[float32], len(names))
	named := make([]column.Named, len(names))
	for i, name := range names {
		v, err := vec[float32](a, name)
		if err != nil {
			return nil, err
		}
		vs[i] = v
		named[i] = column.Named{Name: name, Array: v}
	}
	if err := column.CheckAligned("hits", named...); err != nil {
		return nil, err
	}

	hits := make([]record.Hit, len(vs[0]))
	for i := range hits {
		hits[i] = record.Hit{
			ID:    record.SentinelInt,
			X:     vs[0][i],
			Y:     vs[1][i],
			Z:     vs[2][i],
			TsPPS: vs[3][i],
			Q:     vs[4][i],
			E:     vs[5][i],
		}
	}
	return hits, nil
}

func flatTruthOf(a arrays) (truth.Flat, error) {
	var (
		f   truth.Flat
		err error
	)
	if f.Matches, err = vec[uint16](a, "matches"); err != nil {
		return f, err
	}
	if f.Fractions, err = vec[float32](a, "hit_packetFrac"); err != nil {
		return f, err
	}
	if f.ParticleID, err = vec[int64](a, "hit_particleID"); err != nil {
		return f, err
	}
	if f.ParticleIDLocal, err = vec[int64](a, "hit_particleIDLocal"); err != nil {
		return f, err
	}
	if f.PDG, err = vec[int32](a, "hit_pdg"); err != nil {
		return f, err
	}
	if f.VertexID, err = vec[int64](a, "hit_vertexID"); err != nil {
		return f, err
	}
	if f.SegmentID, err = vec[int64](a, "hit_segmentID"); err != nil {
		return f, err
	}
	return f, nil
}

// group checks that the columns named like the template are present and
// aligned, returning their common length.
func group(a arrays, table string, like []column.Named) (int, error) {
	named := make([]column.Named, len(like))
	for i, d := range like {
		c, ok := a[d.Name]
		if !ok {
			return 0, fmt.Errorf("missing column %q", d.Name)
		}
		named[i] = column.Named{Name: d.Name, Array: c}
	}
	if err := column.CheckAligned(table, named...); err != nil {
		return 0, err
	}
	return named[0].Len(), nil
}

func particlesOf(a arrays) ([]truth.Particle, error) {
	n, err := group(a, ParticlesTable, particleColumns(nil))
	if err != nil {
		return nil, err
	}
	var (
		energy, px, py, pz, sx, sy, sz, ex, ey, ez column.Vec[float32]
		pdg                                        column.Vec[int32]
		nuid, vtx, idLocal, id, mother             column.Vec[int64]
	)
	for _, f := range []struct {
		name string
		dst  *column.Vec[float32]
	}{
		{"mcp_energy", &energy}, {"mcp_px", &px}, {"mcp_py", &py}, {"mcp_pz", &pz},
		{"mcp_startx", &sx}, {"mcp_starty", &sy}, {"mcp_startz", &sz},
		{"mcp_endx", &ex}, {"mcp_endy", &ey}, {"mcp_endz", &ez},
	} {
		if *f.dst, err = vec[float32](a, f.name); err != nil {
			return nil, err
		}
	}
	if pdg, err = vec[int32](a, "mcp_pdg"); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		name string
		dst  *column.Vec[int64]
	}{
		{"mcp_nuid", &nuid}, {"mcp_vertex_id", &vtx}, {"mcp_idLocal", &idLocal},
		{"mcp_id", &id}, {"mcp_mother", &mother},
	} {
		if *f.dst, err = vec[int64](a, f.name); err != nil {
			return nil, err
		}
	}

	ps := make([]truth.Particle, n)
	for i := range ps {
		ps[i] = truth.Particle{
			ID:          id[i],
			IDLocal:     idLocal[i],
			PDG:         pdg[i],
			Mother:      mother[i],
			VertexID:    vtx[i],
			VertexIndex: nuid[i],
			Energy:      energy[i],
			P:           [3]float32{px[i], py[i], pz[i]},
			Start:       [3]float32{sx[i], sy[i], sz[i]},
			End:         [3]float32{ex[i], ey[i], ez[i]},
		}
	}
	return ps, nil
}

func interactionsOf(a arrays) ([]truth.Interaction, error) {
	n, err := group(a, InteractionsTable, interactionColumns(nil))
	if err != nil {
		return nil, err
	}
	var (
		nue, px, py, pz, vx, vy, vz column.Vec[float32]
		pdg, mode, ccnc             column.Vec[int32]
		nuID, vtx                   column.Vec[int64]
	)
	for _, f := range []struct {
		name string
		dst  *column.Vec[float32]
	}{
		{"nue", &nue}, {"nupx", &px}, {"nupy", &py}, {"nupz", &pz},
		{"nuvtxx", &vx}, {"nuvtxy", &vy}, {"nuvtxz", &vz},
	} {
		if *f.dst, err = vec[float32](a, f.name); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		name string
		dst  *column.Vec[int32]
	}{
		{"nuPDG", &pdg}, {"mode", &mode}, {"ccnc", &ccnc},
	} {
		if *f.dst, err = vec[int32](a, f.name); err != nil {
			return nil, err
		}
	}
	if nuID, err = vec[int64](a, "nuID"); err != nil {
		return nil, err
	}
	if vtx, err = vec[int64](a, "vertex_id"); err != nil {
		return nil, err
	}

	vs := make([]truth.Interaction, n)
	for i := range vs {
		vs[i] = truth.Interaction{
			VertexID: vtx[i],
			Index:    nuID[i],
			PDG:      pdg[i],
			Energy:   nue[i],
			P:        [3]float32{px[i], py[i], pz[i]},
			Pos:      [3]float32{vx[i], vy[i], vz[i]},
			Mode:     mode[i],
			IsCC:     ccnc[i] == truth.CCNC(true),
		}
	}
	return vs, nil
}
