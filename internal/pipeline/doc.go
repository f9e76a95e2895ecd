// Package pipeline drives a conversion run.
//
// A Controller owns the output sink for the whole run. For each input file
// it opens the flow store, walks the event table in stored order and, per
// event:
//
//  1. resolves the event's hits
//  2. in MC mode, aggregates per-hit truth and extracts the spill truth
//  3. merges everything into one record and builds sink batches
//  4. writes the batches
//
// Events that cannot be converted are skipped with a logged reason; see
// SkipReason. Relation and sink failures abort the run.
//
// With Workers > 1, events are processed concurrently in windows and written
// strictly in stored order, so the output is identical to a sequential run.
package pipeline
