// Package sink writes column batches to a columnar destination.
//
// A Sink only knows how to create a table and append rows to it. Writer
// sits in front of any Sink and enforces that every batch of a table carries
// the column set of the table's first batch.
package sink

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ndconvert/internal/column"
)

// Sink is a columnar destination.
type Sink interface {
	// CreateTable declares a table with the given column set. Creating a
	// table that already exists with the same columns is not an error.
	CreateTable(ctx context.Context, name string, defs []column.Def) error
	// Append writes every row of b to b.Table.
	Append(ctx context.Context, b *column.Batch) error
	// Close flushes and releases the sink.
	Close() error
}

// Scanner is implemented by sinks whose tables can be read back.
type Scanner interface {
	// Scan calls fn with every row of table, in write order, as a
	// single-row batch carrying the table's recorded column set.
	Scan(ctx context.Context, table string, fn func(*column.Batch) error) error
}

// RunRecorder is implemented by sinks that keep a record of conversion runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunInfo) error
}

// RunInfo summarizes one conversion run.
type RunInfo struct {
	ID      string         `json:"id"`
	Inputs  []string       `json:"inputs"`
	Mode    string         `json:"mode"`
	IsData  bool           `json:"is_data"`
	Events  int            `json:"events"`
	Written int            `json:"written"`
	Skipped map[string]int `json:"skipped"`
	Batches int            `json:"batches"`
}

// SchemaMismatchError reports a batch whose column set differs from the
// table it is written to.
type SchemaMismatchError struct {
	Table string
	Want  []column.Def
	Got   []column.Def
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch on table %s: have [%s], batch has [%s]",
		e.Table, joinDefs(e.Want), joinDefs(e.Got))
}

// IsSchemaMismatch reports whether err wraps a *SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var sm *SchemaMismatchError
	return errors.As(err, &sm)
}

func joinDefs(defs []column.Def) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = d.String()
	}
	return strings.Join(parts, " ")
}

// ErrClosed is returned when writing to a closed Writer or sink.
var ErrClosed = errors.New("sink closed")

// Writer guards a Sink. It creates each table from its first batch and
// rejects later batches with a different column set. Writer is not safe for
// concurrent use.
type Writer struct {
	sink    Sink
	tables  map[string][]column.Def
	order   []string
	batches int
	closed  bool
}

// NewWriter wraps s.
func NewWriter(s Sink) *Writer {
	return &Writer{sink: s, tables: make(map[string][]column.Def)}
}

// Write validates b and appends it, creating the table on first use.
func (w *Writer) Write(ctx context.Context, b *column.Batch) error {
	if w.closed {
		return ErrClosed
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	defs := b.Defs()
	want, ok := w.tables[b.Table]
	if !ok {
		if err := w.sink.CreateTable(ctx, b.Table, defs); err != nil {
			return fmt.Errorf("create table %s: %w", b.Table, err)
		}
		w.tables[b.Table] = defs
		w.order = append(w.order, b.Table)
	} else if !column.SameDefs(want, defs) {
		return &SchemaMismatchError{Table: b.Table, Want: want, Got: defs}
	}

	if err := w.sink.Append(ctx, b); err != nil {
		return fmt.Errorf("append to %s: %w", b.Table, err)
	}
	w.batches++
	return nil
}

// Batches returns how many batches have been written.
func (w *Writer) Batches() int {
	return w.batches
}

// Tables returns the names of the tables written so far, in creation
// order.
func (w *Writer) Tables() []string {
	return slices.Clone(w.order)
}

// RecordRun forwards to the underlying sink when it keeps run records.
func (w *Writer) RecordRun(ctx context.Context, run RunInfo) error {
	if w.closed {
		return ErrClosed
	}
	if r, ok := w.sink.(RunRecorder); ok {
		return r.RecordRun(ctx, run)
	}
	return nil
}

// Close closes the underlying sink once. Later calls return nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.sink.Close()
}
