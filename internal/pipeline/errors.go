package pipeline

import (
	"errors"
	"fmt"

	"github.com/roach88/ndconvert/internal/column"
)

// EmptyEventError means an event has no hits.
type EmptyEventError struct {
	EventID int64
}

func (e *EmptyEventError) Error() string {
	return fmt.Sprintf("event %d has no hits", e.EventID)
}

// InsufficientHitsError means an event has fewer than MinHits hits.
type InsufficientHitsError struct {
	EventID int64
	Hits    int
}

func (e *InsufficientHitsError) Error() string {
	return fmt.Sprintf("event %d has %d hit(s), need at least %d", e.EventID, e.Hits, MinHits)
}

// MinHits is the smallest hit count an event needs to be converted.
const MinHits = 2

// Skip reasons, as counted in Stats.Skipped.
const (
	ReasonEmptyEvent       = "empty_event"
	ReasonInsufficientHits = "insufficient_hits"
	ReasonMisaligned       = "misaligned"
)

// SkipReason classifies err. ok is false for errors that must abort the run.
func SkipReason(err error) (reason string, ok bool) {
	var empty *EmptyEventError
	var few *InsufficientHitsError
	switch {
	case err == nil:
		return "", false
	case errors.As(err, &empty):
		return ReasonEmptyEvent, true
	case errors.As(err, &few):
		return ReasonInsufficientHits, true
	case column.IsAlignment(err):
		return ReasonMisaligned, true
	default:
		return "", false
	}
}

// IsSkippable reports whether err only skips the event it came from.
func IsSkippable(err error) bool {
	_, ok := SkipReason(err)
	return ok
}
