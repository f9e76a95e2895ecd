package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/ndconvert/internal/column"
)

// Scan reads table back in write order. Rows come out one at a time; fn
// must not use s while the scan is running.
func (s *SQLite) Scan(ctx context.Context, table string, fn func(*column.Batch) error) error {
	if s.db == nil {
		return ErrClosed
	}

	defs, err := s.columns(ctx, table)
	if err != nil {
		return err
	}
	if defs == nil {
		return fmt.Errorf("scan: table %s not found", table)
	}

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = quote(d.Name)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY row_id",
		strings.Join(names, ", "), quote(table)))
	if err != nil {
		return fmt.Errorf("scan %s: %w", table, err)
	}
	defer rows.Close()

	vals := make([]any, len(defs))
	dest := make([]any, len(defs))
	for i := range dest {
		dest[i] = &vals[i]
	}
	for n := 0; rows.Next(); n++ {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan %s: row %d: %w", table, n, err)
		}
		b := column.NewBatch(table)
		for i, d := range defs {
			a, err := arrayOf(d, vals[i])
			if err != nil {
				return fmt.Errorf("scan %s: row %d column %s: %w", table, n, d.Name, err)
			}
			b.Add(d.Name, a)
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return rows.Err()
}

// arrayOf turns one stored cell into a single-row array of the column's
// recorded type and shape.
func arrayOf(d column.Def, v any) (column.Array, error) {
	switch d.Type {
	case column.Int32:
		return decode[int32](d.Shape, v)
	case column.Int64:
		return decode[int64](d.Shape, v)
	case column.Float32:
		return decode[float32](d.Shape, v)
	case column.UInt16:
		return decode[uint16](d.Shape, v)
	default:
		return nil, fmt.Errorf("unsupported column type %q", d.Type)
	}
}

func decode[T column.Elem](shape column.Shape, v any) (column.Array, error) {
	if shape == column.ShapeList {
		var text []byte
		switch x := v.(type) {
		case string:
			text = []byte(x)
		case []byte:
			text = x
		default:
			return nil, fmt.Errorf("list cell holds %T, want JSON text", v)
		}
		var xs []T
		if err := json.Unmarshal(text, &xs); err != nil {
			return nil, err
		}
		if xs == nil {
			xs = []T{}
		}
		return column.List[T]{xs}, nil
	}

	switch x := v.(type) {
	case int64:
		return column.Vec[T]{T(x)}, nil
	case float64:
		return column.Vec[T]{T(x)}, nil
	default:
		return nil, fmt.Errorf("scalar cell holds %T", v)
	}
}

// Scan replays the batches appended to table, one row at a time. A closed
// Memory can still be scanned.
func (m *Memory) Scan(ctx context.Context, table string, fn func(*column.Batch) error) error {
	m.mu.Lock()
	_, ok := m.defs[table]
	batches := append([]*column.Batch(nil), m.rows[table]...)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("scan: table %s not found", table)
	}

	for _, b := range batches {
		for r := 0; r < b.Rows(); r++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(b.Row(r)); err != nil {
				return err
			}
		}
	}
	return nil
}
