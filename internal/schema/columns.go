package schema

import (
	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/truth"
)

func repeat[T column.Elem](v T, n int) column.Vec[T] {
	out := make(column.Vec[T], n)
	for i := range out {
		out[i] = v
	}
	return out
}

func project[S any, T column.Elem](xs []S, f func(S) T) column.Vec[T] {
	out := make(column.Vec[T], len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

func hitColumns(hits []record.Hit) []column.Named {
	return []column.Named{
		{Name: "x", Array: project(hits, func(h record.Hit) float32 { return h.X })},
		{Name: "y", Array: project(hits, func(h record.Hit) float32 { return h.Y })},
		{Name: "z", Array: project(hits, func(h record.Hit) float32 { return h.Z })},
		{Name: "ts", Array: project(hits, func(h record.Hit) float32 { return h.TsPPS })},
		{Name: "charge", Array: project(hits, func(h record.Hit) float32 { return h.Q })},
		{Name: "E", Array: project(hits, func(h record.Hit) float32 { return h.E })},
	}
}

func particleColumns(ps []truth.Particle) []column.Named {
	return []column.Named{
		{Name: "mcp_energy", Array: project(ps, func(x truth.Particle) float32 { return x.Energy })},
		{Name: "mcp_pdg", Array: project(ps, func(x truth.Particle) int32 { return x.PDG })},
		{Name: "mcp_nuid", Array: project(ps, func(x truth.Particle) int64 { return x.VertexIndex })},
		{Name: "mcp_vertex_id", Array: project(ps, func(x truth.Particle) int64 { return x.VertexID })},
		{Name: "mcp_idLocal", Array: project(ps, func(x truth.Particle) int64 { return x.IDLocal })},
		{Name: "mcp_id", Array: project(ps, func(x truth.Particle) int64 { return x.ID })},
		{Name: "mcp_px", Array: project(ps, func(x truth.Particle) float32 { return x.P[0] })},
		{Name: "mcp_py", Array: project(ps, func(x truth.Particle) float32 { return x.P[1] })},
		{Name: "mcp_pz", Array: project(ps, func(x truth.Particle) float32 { return x.P[2] })},
		{Name: "mcp_mother", Array: project(ps, func(x truth.Particle) int64 { return x.Mother })},
		{Name: "mcp_startx", Array: project(ps, func(x truth.Particle) float32 { return x.Start[0] })},
		{Name: "mcp_starty", Array: project(ps, func(x truth.Particle) float32 { return x.Start[1] })},
		{Name: "mcp_startz", Array: project(ps, func(x truth.Particle) float32 { return x.Start[2] })},
		{Name: "mcp_endx", Array: project(ps, func(x truth.Particle) float32 { return x.End[0] })},
		{Name: "mcp_endy", Array: project(ps, func(x truth.Particle) float32 { return x.End[1] })},
		{Name: "mcp_endz", Array: project(ps, func(x truth.Particle) float32 { return x.End[2] })},
	}
}

func interactionColumns(vs []truth.Interaction) []column.Named {
	return []column.Named{
		{Name: "nuID", Array: project(vs, func(x truth.Interaction) int64 { return x.Index })},
		{Name: "vertex_id", Array: project(vs, func(x truth.Interaction) int64 { return x.VertexID })},
		{Name: "nue", Array: project(vs, func(x truth.Interaction) float32 { return x.Energy })},
		{Name: "nuPDG", Array: project(vs, func(x truth.Interaction) int32 { return x.PDG })},
		{Name: "nupx", Array: project(vs, func(x truth.Interaction) float32 { return x.P[0] })},
		{Name: "nupy", Array: project(vs, func(x truth.Interaction) float32 { return x.P[1] })},
		{Name: "nupz", Array: project(vs, func(x truth.Interaction) float32 { return x.P[2] })},
		{Name: "nuvtxx", Array: project(vs, func(x truth.Interaction) float32 { return x.Pos[0] })},
		{Name: "nuvtxy", Array: project(vs, func(x truth.Interaction) float32 { return x.Pos[1] })},
		{Name: "nuvtxz", Array: project(vs, func(x truth.Interaction) float32 { return x.Pos[2] })},
		{Name: "mode", Array: project(vs, func(x truth.Interaction) int32 { return x.Mode })},
		{Name: "ccnc", Array: project(vs, func(x truth.Interaction) int32 { return truth.CCNC(x.IsCC) })},
	}
}
