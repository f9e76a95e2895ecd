// Package record defines the per-event data model read from a flow file.
//
// Every value here is transient: the pipeline re-derives it from the backing
// store for each event and drops it once the event's batches are written.
//
// # Ragged arrays
//
// Relation targets in a flow file are fixed-width arrays padded with zeros.
// A zero segment id is a valid reference, so padding cannot be detected by
// value alone. DecodeLinks turns each raw position into a Slot that is either
// Present or Missing; downstream code never looks at raw padded arrays.
package record
