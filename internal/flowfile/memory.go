package flowfile

import (
	"context"
	"fmt"

	"github.com/roach88/ndconvert/internal/record"
)

type relKey struct {
	parent, child string
}

// Memory is an in-process Store. Build it with the Add/Link methods, then
// treat it as read-only.
type Memory struct {
	events       []record.Event
	hits         map[string]map[int64]record.Hit
	hitOrder     map[string][]int64
	relations    map[relKey]map[int64][]int64
	segments     map[int64]record.Segment
	segOrder     []int64
	fractions    map[string]map[int64]FractionRow
	fracOrder    map[string][]int64
	trajectories []record.Trajectory
	interactions []record.Vertex
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory flow file.
func NewMemory() *Memory {
	return &Memory{
		hits:      make(map[string]map[int64]record.Hit),
		hitOrder:  make(map[string][]int64),
		relations: make(map[relKey]map[int64][]int64),
		segments:  make(map[int64]record.Segment),
		fractions: make(map[string]map[int64]FractionRow),
		fracOrder: make(map[string][]int64),
	}
}

// AddEvents appends rows to the event table.
func (m *Memory) AddEvents(events ...record.Event) *Memory {
	m.events = append(m.events, events...)
	return m
}

// AddHits adds hits to a hit table.
func (m *Memory) AddHits(table string, hits ...record.Hit) *Memory {
	if m.hits[table] == nil {
		m.hits[table] = make(map[int64]record.Hit)
	}
	for _, h := range hits {
		if _, dup := m.hits[table][h.ID]; !dup {
			m.hitOrder[table] = append(m.hitOrder[table], h.ID)
		}
		m.hits[table][h.ID] = h
	}
	return m
}

// Register declares a reference dataset between two tables without adding
// any links.
func (m *Memory) Register(parent, child string) *Memory {
	k := relKey{parent, child}
	if m.relations[k] == nil {
		m.relations[k] = make(map[int64][]int64)
	}
	return m
}

// Link registers the relation if needed and appends child ids to parentID.
func (m *Memory) Link(parent, child string, parentID int64, childIDs ...int64) *Memory {
	m.Register(parent, child)
	k := relKey{parent, child}
	m.relations[k][parentID] = append(m.relations[k][parentID], childIDs...)
	return m
}

// AddSegments adds rows to mc_truth/segments.
func (m *Memory) AddSegments(segs ...record.Segment) *Memory {
	for _, s := range segs {
		if _, dup := m.segments[s.ID]; !dup {
			m.segOrder = append(m.segOrder, s.ID)
		}
		m.segments[s.ID] = s
	}
	return m
}

// AddFractions adds padded fraction rows to a fraction table.
func (m *Memory) AddFractions(table string, rows ...FractionRow) *Memory {
	if m.fractions[table] == nil {
		m.fractions[table] = make(map[int64]FractionRow)
	}
	for _, r := range rows {
		if _, dup := m.fractions[table][r.ID]; !dup {
			m.fracOrder[table] = append(m.fracOrder[table], r.ID)
		}
		m.fractions[table][r.ID] = r
	}
	return m
}

// AddTrajectories appends rows to the trajectory table.
func (m *Memory) AddTrajectories(trajs ...record.Trajectory) *Memory {
	m.trajectories = append(m.trajectories, trajs...)
	return m
}

// AddInteractions appends rows to the interaction table.
func (m *Memory) AddInteractions(vtxs ...record.Vertex) *Memory {
	m.interactions = append(m.interactions, vtxs...)
	return m
}

func (m *Memory) Events(ctx context.Context) ([]record.Event, error) {
	return append([]record.Event(nil), m.events...), nil
}

func (m *Memory) Children(ctx context.Context, parent, child string, ids []int64) ([][]int64, error) {
	refs, ok := m.relations[relKey{parent, child}]
	if !ok {
		return nil, &UnknownRelationError{Parent: parent, Child: child}
	}
	out := make([][]int64, len(ids))
	for i, id := range ids {
		out[i] = append([]int64{}, refs[id]...)
	}
	return out, nil
}

func (m *Memory) Hits(ctx context.Context, table string, ids []int64) ([]record.Hit, error) {
	rows := m.hits[table]
	out := make([]record.Hit, len(ids))
	for i, id := range ids {
		h, ok := rows[id]
		if !ok {
			return nil, fmt.Errorf("%s id %d: %w", table, id, ErrNotFound)
		}
		out[i] = h
	}
	return out, nil
}

func (m *Memory) Segments(ctx context.Context, ids []int64) ([]record.Segment, error) {
	out := make([]record.Segment, len(ids))
	for i, id := range ids {
		s, ok := m.segments[id]
		if !ok {
			return nil, fmt.Errorf("%s id %d: %w", record.SegmentsTable, id, ErrNotFound)
		}
		out[i] = s
	}
	return out, nil
}

func (m *Memory) Fractions(ctx context.Context, table string, ids []int64) ([]FractionRow, error) {
	rows := m.fractions[table]
	out := make([]FractionRow, len(ids))
	for i, id := range ids {
		r, ok := rows[id]
		if !ok {
			return nil, fmt.Errorf("%s id %d: %w", table, id, ErrNotFound)
		}
		out[i] = r
	}
	return out, nil
}

func (m *Memory) Trajectories(ctx context.Context) ([]record.Trajectory, error) {
	return append([]record.Trajectory(nil), m.trajectories...), nil
}

func (m *Memory) Interactions(ctx context.Context) ([]record.Vertex, error) {
	return append([]record.Vertex(nil), m.interactions...), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
