// Package planfile reads and writes stowage plan documents.
//
// A plan document describes a vessel's bays and rows, the current container
// assignments and the running metrics. It is accepted as JSON or YAML using
// the field names of the planner output (vesselId, bayDetails, assignment,
// ...). Bay, row and POD values may be written as strings or numbers.
//
// Decoding is a pure transformation of bytes into a Record. Build turns a
// Record into a domain.Grid and fails fast with a PlanIntegrityError on the
// first inconsistency. Export turns a Grid back into a Record.
//
// # Functions
//
//   - Decode: Parse a Record from JSON or YAML
//   - Encode: Write a Record as JSON or YAML
//   - Build: Validate a Record and load it into a Grid
//   - Export: Snapshot a Grid as a Record
package planfile
