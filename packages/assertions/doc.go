// Package assertions validates responses against expectations.
//
// Validation is subset-equality: every key of the expected tree must be
// present in the actual tree with a matching value, while extra actual
// keys are ignored. Sequences must match element by element. Walking
// stops at the first mismatch, in document order of the expectation, and
// reports its path ($.data.items[2]).
//
// An expected string such as ">0" or "<=10" is a numeric comparison when
// the actual value is a number; the comparison is also recorded as a note.
package assertions
