// Package capture extracts values from responses into the Variable Store.
//
// Each assignment names a response path and a variable:
//   - Body paths use dots and indices (data.id, items[0].id); an empty path is the whole body
//   - header:Name reads a response header, case-insensitively
//
// Only scalars can be captured. Either every assignment of a plan is
// applied or none is.
package capture
