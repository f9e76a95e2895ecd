package column

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// AlignmentError reports parallel columns whose lengths disagree. The
// arrays of one group must describe the same rows, so a mismatch means the
// event cannot be written without corrupting the row correspondence.
type AlignmentError struct {
	Group   string
	Lengths map[string]int
}

func (e *AlignmentError) Error() string {
	parts := make([]string, 0, len(e.Lengths))
	for name, n := range e.Lengths {
		parts = append(parts, fmt.Sprintf("%s=%d", name, n))
	}
	return fmt.Sprintf("misaligned %s columns: %s", e.Group, strings.Join(sortedStrings(parts), " "))
}

// IsAlignment reports whether err wraps an *AlignmentError.
func IsAlignment(err error) bool {
	var ae *AlignmentError
	return errors.As(err, &ae)
}

// CheckAligned returns an *AlignmentError unless every column has the same
// length.
func CheckAligned(group string, cols ...Named) error {
	if len(cols) == 0 {
		return nil
	}
	want := cols[0].Len()
	for _, c := range cols[1:] {
		if c.Len() != want {
			lengths := make(map[string]int, len(cols))
			for _, c := range cols {
				lengths[c.Name] = c.Len()
			}
			return &AlignmentError{Group: group, Lengths: lengths}
		}
	}
	return nil
}

func sortedStrings(s []string) []string {
	slices.Sort(s)
	return s
}
