package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/ndconvert/internal/column"
)

// Memory is a Sink that keeps every batch in memory.
type Memory struct {
	mu     sync.Mutex
	defs   map[string][]column.Def
	order  []string
	rows   map[string][]*column.Batch
	runs   []RunInfo
	closes int
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{
		defs: make(map[string][]column.Def),
		rows: make(map[string][]*column.Batch),
	}
}

func (m *Memory) CreateTable(ctx context.Context, name string, defs []column.Def) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closes > 0 {
		return ErrClosed
	}
	if have, ok := m.defs[name]; ok {
		if !column.SameDefs(have, defs) {
			return &SchemaMismatchError{Table: name, Want: have, Got: defs}
		}
		return nil
	}
	m.defs[name] = defs
	m.order = append(m.order, name)
	return nil
}

func (m *Memory) Append(ctx context.Context, b *column.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closes > 0 {
		return ErrClosed
	}
	if _, ok := m.defs[b.Table]; !ok {
		return fmt.Errorf("append to unknown table %s", b.Table)
	}
	m.rows[b.Table] = append(m.rows[b.Table], b)
	return nil
}

func (m *Memory) RecordRun(ctx context.Context, run RunInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Tables returns table names in creation order.
func (m *Memory) Tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Columns returns the column set of table.
func (m *Memory) Columns(table string) []column.Def {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defs[table]
}

// Batches returns the batches appended to table, in order.
func (m *Memory) Batches(table string) []*column.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*column.Batch(nil), m.rows[table]...)
}

// Runs returns the recorded runs.
func (m *Memory) Runs() []RunInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunInfo(nil), m.runs...)
}

// Closes returns how many times Close was called.
func (m *Memory) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
