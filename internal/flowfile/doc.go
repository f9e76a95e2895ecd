// Package flowfile is the boundary to the hierarchical flow file that the
// converter reads.
//
// A flow file is a set of datasets (tables) linked by reference datasets.
// Store exposes exactly the primitives the pipeline needs: the event table,
// one-hop reference lookups, record fetches by id, and full scans of the
// trajectory and interaction tables.
//
// Two implementations exist:
//   - Memory: in-process tables, loaded from YAML fixtures or built in tests
//   - SQLite: a relational export of a flow file (see flow_schema.sql)
//
// Both are read-only once built and safe for concurrent readers.
package flowfile
