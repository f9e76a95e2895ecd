package testutil

import (
	"github.com/roach88/ndconvert/internal/flowfile"
	"github.com/roach88/ndconvert/internal/record"
)

// Spill ids used by SampleFlow.
const (
	SampleSpill      int64 = 5
	OtherSampleSpill int64 = 6
)

// Event ids in SampleFlow and what each exercises.
const (
	// EventFull has three prompt and two final hits with truth.
	EventFull int64 = 1
	// EventEmpty has no hits at all.
	EventEmpty int64 = 2
	// EventSingleHit has one hit of each kind.
	EventSingleHit int64 = 3
	// EventNoTruth has two hits whose packets carry no segments.
	EventNoTruth int64 = 4
)

// SampleFlow builds a small Monte Carlo flow file:
//
//	event 1: prompt hits 10 11 12, final hits 20 21
//	         10 -> packet 100 -> segments 0,1 (0.75, 0.25)
//	         11 -> packet 101 -> segment 2 (1.0)
//	         12 -> packet 102 -> nothing
//	event 2: no hits
//	event 3: prompt hit 30, final hit 31
//	event 4: prompt hits 40 41, both on packet 102
//
// Spill 5 holds trajectories 1-3 and vertices 5000000123 (CC QES) and 42
// (NC DIS); spill 6 holds one of each that must never be selected.
func SampleFlow() *flowfile.Memory {
	pHits := record.Prompt.Table()
	fHits := record.Final.Table()
	pBack := record.Prompt.BacktrackTable()
	fBack := record.Final.BacktrackTable()

	m := flowfile.NewMemory().
		AddEvents(
			record.Event{ID: EventFull, TsStart: 100, TsEnd: 200, UnixTs: 1700000000},
			record.Event{ID: EventEmpty, TsStart: 300, TsEnd: 400, UnixTs: 1700000001},
			record.Event{ID: EventSingleHit, TsStart: 500, TsEnd: 600, UnixTs: 1700000002},
			record.Event{ID: EventNoTruth, TsStart: 700, TsEnd: 800, UnixTs: 1700000003},
		).
		AddHits(pHits,
			record.Hit{ID: 10, X: 1, Y: 2, Z: 3, Q: 10, E: 0.5, TsPPS: 1000},
			record.Hit{ID: 11, X: 1.5, Y: 2.5, Z: 3.5, Q: 20, E: 1, TsPPS: 1001},
			record.Hit{ID: 12, X: -4, Y: 0, Z: 8, Q: 5, E: 0.25, TsPPS: 1002},
			record.Hit{ID: 30, X: 9, Y: 9, Z: 9, Q: 1, E: 0.125, TsPPS: 1003},
			record.Hit{ID: 40, X: 0, Y: 1, Z: 0, Q: 2, E: 0.5, TsPPS: 1004},
			record.Hit{ID: 41, X: 0, Y: 2, Z: 0, Q: 3, E: 0.75, TsPPS: 1005},
		).
		AddHits(fHits,
			record.Hit{ID: 20, X: 1.25, Y: 2.25, Z: 3.25, Q: 30, E: 1.5, TsPPS: 1000},
			record.Hit{ID: 21, X: -4, Y: 0, Z: 8, Q: 5, E: 0.25, TsPPS: 1002},
			record.Hit{ID: 31, X: 9, Y: 9, Z: 9, Q: 1, E: 0.125, TsPPS: 1003},
		).
		Link(record.EventsTable, pHits, EventFull, 10, 11, 12).
		Link(record.EventsTable, pHits, EventSingleHit, 30).
		Link(record.EventsTable, pHits, EventNoTruth, 40, 41).
		Link(record.EventsTable, fHits, EventFull, 20, 21).
		Link(record.EventsTable, fHits, EventSingleHit, 31).
		// packet path
		Link(pHits, record.PacketsTable, 10, 100).
		Link(pHits, record.PacketsTable, 11, 101).
		Link(pHits, record.PacketsTable, 12, 102).
		Link(pHits, record.PacketsTable, 30, 101).
		Link(pHits, record.PacketsTable, 40, 102).
		Link(pHits, record.PacketsTable, 41, 102).
		Link(fHits, record.PacketsTable, 20, 100).
		Link(fHits, record.PacketsTable, 21, 102).
		Link(fHits, record.PacketsTable, 31, 101).
		Link(record.PacketsTable, record.SegmentsTable, 100, 0, 1).
		Link(record.PacketsTable, record.SegmentsTable, 101, 2).
		Register(record.PacketsTable, record.SegmentsTable).
		Link(record.PacketsTable, record.PacketFractionTable, 100, 100).
		Link(record.PacketsTable, record.PacketFractionTable, 101, 101).
		Link(record.PacketsTable, record.PacketFractionTable, 102, 102).
		AddFractions(record.PacketFractionTable,
			flowfile.FractionRow{ID: 100, Fractions: []float32{0.75, 0.25, 0, 0}},
			flowfile.FractionRow{ID: 101, Fractions: []float32{1, 0, 0, 0}},
			flowfile.FractionRow{ID: 102, Fractions: []float32{0, 0, 0, 0}},
		).
		// backtrack path
		Link(pHits, pBack, 10, 10).
		Link(pHits, pBack, 11, 11).
		Link(pHits, pBack, 12, 12).
		Link(pHits, pBack, 30, 30).
		Link(pHits, pBack, 40, 40).
		Link(pHits, pBack, 41, 41).
		Link(fHits, fBack, 20, 20).
		Link(fHits, fBack, 21, 21).
		Link(fHits, fBack, 31, 31).
		AddFractions(pBack,
			flowfile.FractionRow{ID: 10, SegmentIDs: []int64{0, 1, 0}, Fractions: []float32{0.75, 0.25, 0}},
			flowfile.FractionRow{ID: 11, SegmentIDs: []int64{2, 0}, Fractions: []float32{1, 0}},
			flowfile.FractionRow{ID: 12, SegmentIDs: []int64{0, 0}, Fractions: []float32{0, 0}},
			flowfile.FractionRow{ID: 30, SegmentIDs: []int64{2}, Fractions: []float32{1}},
			flowfile.FractionRow{ID: 40, SegmentIDs: []int64{0}, Fractions: []float32{0}},
			flowfile.FractionRow{ID: 41, SegmentIDs: []int64{0}, Fractions: []float32{0}},
		).
		AddFractions(fBack,
			flowfile.FractionRow{ID: 20, SegmentIDs: []int64{1}, Fractions: []float32{0.5}},
			flowfile.FractionRow{ID: 21, SegmentIDs: []int64{0}, Fractions: []float32{0}},
			flowfile.FractionRow{ID: 31, SegmentIDs: []int64{2}, Fractions: []float32{1}},
		).
		AddSegments(
			record.Segment{ID: 0, SegmentID: 0, EventID: SampleSpill, PDG: 13, FileTrajID: 5000001, TrajID: 1, VertexID: 5000000123},
			record.Segment{ID: 1, SegmentID: 1, EventID: SampleSpill, PDG: 2212, FileTrajID: 5000002, TrajID: 2, VertexID: 5000000123},
			record.Segment{ID: 2, SegmentID: 2, EventID: SampleSpill, PDG: 11, FileTrajID: 5000003, TrajID: 3, VertexID: 42},
		).
		AddTrajectories(
			record.Trajectory{
				EventID: SampleSpill, FileTrajID: 5000001, TrajID: 1, PDG: 13, VertexID: 5000000123, ParentID: -1,
				XYZStart: [3]float32{0, 0, 0}, XYZEnd: [3]float32{1, 2, 3},
				PXYZStart: [3]float32{100, 200, 300}, EStart: 500,
			},
			record.Trajectory{
				EventID: OtherSampleSpill, FileTrajID: 6000001, TrajID: 1, PDG: 22, VertexID: 6000000001, ParentID: -1,
			},
			record.Trajectory{
				EventID: SampleSpill, FileTrajID: 5000002, TrajID: 2, PDG: 2212, VertexID: 5000000123, ParentID: 1,
				XYZStart: [3]float32{1, 2, 3}, XYZEnd: [3]float32{4, 5, 6},
				PXYZStart: [3]float32{10, 20, 30}, EStart: 1000,
			},
			record.Trajectory{
				EventID: SampleSpill, FileTrajID: 5000003, TrajID: 3, PDG: 11, VertexID: 42, ParentID: -1,
				XYZStart: [3]float32{7, 8, 9}, XYZEnd: [3]float32{7, 8, 10},
				PXYZStart: [3]float32{0, 0, 50}, EStart: 50,
			},
		).
		AddInteractions(
			record.Vertex{
				EventID: SampleSpill, VertexID: 5000000123, X: 1, Y: 2, Z: 3, Enu: 2000, NuPDG: 14,
				Nu4Mom: [4]float32{0, 0, 2000, 2000}, IsCC: true, IsQES: true,
			},
			record.Vertex{
				EventID: OtherSampleSpill, VertexID: 6000000001, NuPDG: -14, IsCC: true, IsRES: true,
			},
			record.Vertex{
				EventID: SampleSpill, VertexID: 42, X: 7, Y: 8, Z: 9, Enu: 3000, NuPDG: 14,
				Nu4Mom: [4]float32{0, 1000, 0, 3000}, IsDIS: true,
			},
		)

	return m
}
