package flowfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/ndconvert/internal/record"
)

// Store is the read interface of a flow file.
type Store interface {
	// Events returns the event table in store order.
	Events(ctx context.Context) ([]record.Event, error)

	// Children follows the (parent, child) reference dataset for each parent
	// id and returns the ordered child ids. A parent with no references gets
	// an empty slice. An unregistered relation is an *UnknownRelationError.
	Children(ctx context.Context, parent, child string, ids []int64) ([][]int64, error)

	// Hits fetches hit records from a hit table by id.
	Hits(ctx context.Context, table string, ids []int64) ([]record.Hit, error)

	// Segments fetches mc_truth/segments rows by id.
	Segments(ctx context.Context, ids []int64) ([]record.Segment, error)

	// Fractions fetches padded fraction rows (packet_fraction or a hit
	// backtrack table) by id.
	Fractions(ctx context.Context, table string, ids []int64) ([]FractionRow, error)

	// Trajectories scans the whole trajectory table.
	Trajectories(ctx context.Context) ([]record.Trajectory, error)

	// Interactions scans the whole interaction table.
	Interactions(ctx context.Context) ([]record.Vertex, error)

	Close() error
}

// FractionRow is one row of a padded fraction dataset. Packet fraction rows
// carry only fractions; backtrack rows carry segment ids as well. Both arrays
// are raw: trailing positions may be zero padding.
type FractionRow struct {
	ID         int64     `yaml:"id"`
	SegmentIDs []int64   `yaml:"segment_ids,flow"`
	Fractions  []float32 `yaml:"fraction,flow"`
}

// UnknownRelationError is returned when no reference dataset links two
// tables. It means the input file is malformed or from an incompatible
// producer, so callers treat it as fatal.
type UnknownRelationError struct {
	Parent string
	Child  string
}

func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("unknown relation %s -> %s", e.Parent, e.Child)
}

// IsUnknownRelation reports whether err wraps an *UnknownRelationError.
func IsUnknownRelation(err error) bool {
	var ure *UnknownRelationError
	return errors.As(err, &ure)
}

// ErrNotFound is wrapped by fetches that reference an id absent from its table.
var ErrNotFound = errors.New("record not found")

// Open opens a flow file, choosing the implementation by extension:
// .yaml/.yml fixtures load into a Memory store, anything else is read as a
// SQLite flow export.
func Open(ctx context.Context, path string) (Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open flow file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return OpenSQLite(ctx, path)
	}
}
