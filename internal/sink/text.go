package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/ndconvert/internal/column"
)

// Text is a Sink that renders batches as readable text.
type Text struct {
	w io.Writer
}

// NewText creates a Text sink writing to w. Closing the sink does not
// close w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) CreateTable(ctx context.Context, name string, defs []column.Def) error {
	if _, err := fmt.Fprintf(t.w, "# table %s\n", name); err != nil {
		return err
	}
	for _, d := range defs {
		if _, err := fmt.Fprintf(t.w, "#   %s\n", d); err != nil {
			return err
		}
	}
	return nil
}

func (t *Text) Append(ctx context.Context, b *column.Batch) error {
	return column.Dump(t.w, b)
}

func (t *Text) Close() error { return nil }
