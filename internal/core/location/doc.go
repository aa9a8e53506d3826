// Package location converts between slot coordinates and location codes.
//
// A location code is the canonical string key of a slot: the bay code and
// row code concatenated verbatim, followed by the tier as a zero-padded
// three-digit number. Bay "01", row "02", tier 3 encodes to "0102003".
//
// All functions are pure. The code is the sole key used for assignment
// lookup, so equality is exact string equality.
//
// # Functions
//
//   - Encode: Build a location code from (bay, row, tier)
//   - Decode: Split a location code using the default two/two layout
//   - Codec.Decode: Split a location code using a custom bay/row width
package location
