// Package resolve follows reference chains through a flow file: event to
// hits, hit to packet to segment, hit to backtrack row.
//
// Absence of a link is a valid, empty result. Only a relation the store does
// not know about is an error, and that error is fatal for the run.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/ndconvert/internal/flowfile"
	"github.com/roach88/ndconvert/internal/record"
)

// Path is an ordered list of tables; each adjacent pair is one relation hop.
type Path []string

func (p Path) String() string {
	return strings.Join(p, " -> ")
}

// EventHits is charge/events -> hits of the given kind.
func EventHits(kind record.HitKind) Path {
	return Path{record.EventsTable, kind.Table()}
}

// HitPackets is hits -> charge/packets.
func HitPackets(kind record.HitKind) Path {
	return Path{kind.Table(), record.PacketsTable}
}

// HitSegments is hits -> charge/packets -> mc_truth/segments.
func HitSegments(kind record.HitKind) Path {
	return Path{kind.Table(), record.PacketsTable, record.SegmentsTable}
}

// HitPacketFractions is hits -> charge/packets -> mc_truth/packet_fraction.
func HitPacketFractions(kind record.HitKind) Path {
	return Path{kind.Table(), record.PacketsTable, record.PacketFractionTable}
}

// HitBacktrack is hits -> the kind's backtrack table.
func HitBacktrack(kind record.HitKind) Path {
	return Path{kind.Table(), kind.BacktrackTable()}
}

// Resolver resolves relation paths against a Store. It holds no state of its
// own and is safe for concurrent use if the store is.
type Resolver struct {
	store flowfile.Store
}

// New creates a Resolver over store.
func New(store flowfile.Store) *Resolver {
	return &Resolver{store: store}
}

// Store returns the underlying store.
func (r *Resolver) Store() flowfile.Store {
	return r.store
}

// Resolve follows path from each source id and returns, per source id, the
// target ids reached, in reference order. Intermediate fan-out is flattened.
// Every hop is checked against the store even when there is nothing to
// follow, so an unknown relation fails regardless of the data.
func (r *Resolver) Resolve(ctx context.Context, ids []int64, path Path) ([][]int64, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("resolve: path %q needs at least two tables", path.String())
	}

	cur := make([][]int64, len(ids))
	for i, id := range ids {
		cur[i] = []int64{id}
	}

	for hop := 0; hop+1 < len(path); hop++ {
		parent, child := path[hop], path[hop+1]

		var frontier []int64
		for _, members := range cur {
			frontier = append(frontier, members...)
		}

		children, err := r.store.Children(ctx, parent, child, frontier)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", path, err)
		}

		next := make([][]int64, len(cur))
		k := 0
		for i, members := range cur {
			out := []int64{}
			for range members {
				out = append(out, children[k]...)
				k++
			}
			next[i] = out
		}
		cur = next
	}

	return cur, nil
}
