// Package schema turns one event's hits and truth into sink batches.
//
// Two shapes are supported. Flat writes one row per sub-event chunk to the
// subevents table, every column a list. Nested writes one row per hit to the
// events table and moves spill truth into companion tables.
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/truth"
)

// Output table names.
const (
	SubeventsTable    = "subevents"
	EventsTable       = "events"
	ParticlesTable    = "mc_particles"
	InteractionsTable = "mc_interactions"
)

// Mode selects the output shape.
type Mode int

const (
	// Flat writes one list-valued row per sub-event chunk.
	Flat Mode = iota
	// Nested writes one row per hit.
	Nested
)

// String returns "flat" or "nested".
func (m Mode) String() string {
	if m == Nested {
		return "nested"
	}
	return "flat"
}

// Table returns the main output table of the mode.
func (m Mode) Table() string {
	if m == Nested {
		return EventsTable
	}
	return SubeventsTable
}

// ParseMode accepts the mode name or the name of its table.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "flat", SubeventsTable:
		return Flat, nil
	case "nested", EventsTable:
		return Nested, nil
	default:
		return Flat, fmt.Errorf("unknown output mode %q (want flat or nested)", s)
	}
}

// HitBlock is one hit collection of an event. Truth is nil in data mode and
// otherwise holds one entry per hit.
type HitBlock struct {
	Kind  record.HitKind
	Hits  []record.Hit
	Truth []truth.HitTruth
}

// Record is the merged per-event input of the builder. Flat records carry
// exactly one block. Spill is nil in data mode.
type Record struct {
	Event  record.Event
	Blocks []HitBlock
	Spill  *truth.SpillTruth
}

// Options configures a Builder.
type Options struct {
	Mode     Mode
	IsData   bool
	Capacity int
	// HitOrder is the order nested mode emits hit blocks in.
	HitOrder []record.HitKind
}

// DefaultHitOrder emits final hits before prompt hits.
func DefaultHitOrder() []record.HitKind {
	return []record.HitKind{record.Final, record.Prompt}
}

// Builder produces batches with a fixed column set.
type Builder struct {
	opts Options
}

// NewBuilder validates opts and creates a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("schema: capacity must be positive, got %d", opts.Capacity)
	}
	if len(opts.HitOrder) == 0 {
		opts.HitOrder = DefaultHitOrder()
	}
	seen := make(map[record.HitKind]bool)
	for _, k := range opts.HitOrder {
		if seen[k] {
			return nil, fmt.Errorf("schema: hit kind %s repeated in hit order", k)
		}
		seen[k] = true
	}
	return &Builder{opts: opts}, nil
}

// Mode returns the builder's output shape.
func (b *Builder) Mode() Mode {
	return b.opts.Mode
}

// HitOrder returns the order nested output emits hit blocks in.
func (b *Builder) HitOrder() []record.HitKind {
	return slices.Clone(b.opts.HitOrder)
}

// Table returns the main output table.
func (b *Builder) Table() string {
	return b.opts.Mode.Table()
}

// Columns returns the column set every main-table batch carries.
func (b *Builder) Columns() []column.Def {
	if b.opts.Mode == Nested {
		cols, _ := b.nestedArrays(Record{})
		return nestedBatch(cols, 0).Defs()
	}
	batches, _ := b.buildFlat(Record{Blocks: []HitBlock{{}}})
	return batches[0].Defs()
}

// Build converts one event into batches: the main table first, then, in
// nested MC mode, the companion truth tables when they have rows.
func (b *Builder) Build(rec Record) ([]*column.Batch, error) {
	var (
		batches []*column.Batch
		err     error
	)
	if b.opts.Mode == Nested {
		batches, err = b.buildNested(rec)
	} else {
		batches, err = b.buildFlat(rec)
	}
	if err != nil {
		return nil, fmt.Errorf("build event %d: %w", rec.Event.ID, err)
	}
	return batches, nil
}
