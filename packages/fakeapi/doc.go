// Package fakeapi is a small in-memory customer backend speaking the
// {"code": 0, "data": ...} envelope convention. It backs the example
// testplans and the end-to-end tests of the runner.
package fakeapi
