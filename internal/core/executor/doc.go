// Package executor applies validated moves to a grid.
//
// This package is the only path through which a loaded plan changes. Move
// looks up the container's current assignment, asks the validator, and on
// acceptance calls Grid.ApplyAssignment. A rejected move leaves the grid
// untouched.
//
// The executor holds no locks. Callers that share a grid between goroutines
// must run Move inside one exclusive critical section so that validation and
// application see the same state (see internal/shell/session).
//
// # Functions
//
//   - Move: Validate and apply one move
//   - Replay: Apply a sequence of moves, stopping at the first rejection
package executor
