// Package truth attaches simulated truth to reconstructed hits.
//
// The Aggregator turns each hit's backtracked links into parallel per-hit
// columns. The SpillExtractor collects every trajectory and interaction of a
// spill. Classify maps an interaction's channel flags to a mode code.
//
// None of these components exist for detector data: the pipeline does not
// construct them when the run is configured as data.
package truth
