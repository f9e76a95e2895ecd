package column

import (
	"fmt"
)

// Batch is one sink write: a table name plus parallel columns of equal row
// count. Column order is significant and part of the table's schema.
type Batch struct {
	Table string
	Cols  []Named
}

// NewBatch creates an empty batch for table.
func NewBatch(table string) *Batch {
	return &Batch{Table: table}
}

// Add appends a column. Chainable.
func (b *Batch) Add(name string, a Array) *Batch {
	b.Cols = append(b.Cols, Named{Name: name, Array: a})
	return b
}

// Rows returns the row count of the first column (0 for an empty batch).
func (b *Batch) Rows() int {
	if len(b.Cols) == 0 {
		return 0
	}
	return b.Cols[0].Len()
}

// Row returns row i of b as a single-row batch sharing b's storage.
func (b *Batch) Row(i int) *Batch {
	row := &Batch{Table: b.Table, Cols: make([]Named, len(b.Cols))}
	for k, c := range b.Cols {
		row.Cols[k] = Named{Name: c.Name, Array: c.Slice(i, i+1)}
	}
	return row
}

// Defs returns the batch's column set.
func (b *Batch) Defs() []Def {
	defs := make([]Def, len(b.Cols))
	for i, c := range b.Cols {
		defs[i] = Def{Name: c.Name, Type: c.Type(), Shape: c.Shape()}
	}
	return defs
}

// Validate checks that every column has the same number of rows and that
// no column name repeats.
func (b *Batch) Validate() error {
	seen := make(map[string]bool, len(b.Cols))
	rows := b.Rows()
	for _, c := range b.Cols {
		if seen[c.Name] {
			return fmt.Errorf("batch %s: duplicate column %q", b.Table, c.Name)
		}
		seen[c.Name] = true
		if c.Len() != rows {
			return fmt.Errorf("batch %s: column %q has %d rows, want %d", b.Table, c.Name, c.Len(), rows)
		}
	}
	return nil
}
