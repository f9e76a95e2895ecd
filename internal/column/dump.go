package column

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes a human-readable rendering of a batch, one block per row.
// Floats use the shortest float32 representation so output is stable.
func Dump(w io.Writer, b *Batch) error {
	for r := 0; r < b.Rows(); r++ {
		if _, err := fmt.Fprintf(w, "[%s] row %d\n", b.Table, r); err != nil {
			return err
		}
		for _, c := range b.Cols {
			if _, err := fmt.Fprintf(w, "  %s = %s\n", c.Name, FormatValue(c.At(r))); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatValue renders a scalar element or a list row.
func FormatValue(v any) string {
	switch x := v.(type) {
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case []int32:
		return formatList(x)
	case []int64:
		return formatList(x)
	case []uint16:
		return formatList(x)
	case []float32:
		return formatList(x)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatList[T Elem](xs []T) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = FormatValue(x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
