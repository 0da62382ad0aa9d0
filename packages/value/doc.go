// Package value implements the Value Tree shared by plan content and response bodies.
//
// It provides functionality for:
//   - A tagged union of null, bool, number, string, sequence and mapping
//   - Order-preserving mappings with unique keys
//   - JSON decoding in document order and order-preserving JSON encoding
//   - Dotted path lookup (data.items.0.id, data.items[0].id)
//
// Numbers keep their literal text so identifiers round-trip unchanged when
// they are interpolated into later requests.
package value
