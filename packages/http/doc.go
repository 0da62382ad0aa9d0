// Package http sends testplan requests.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts, redirects, proxy and TLS verification
//   - Default headers such as the auth token, overridable per request
//   - Request building from a resolved plan input (URL join, query, body encoding)
//   - Response bodies decoded into Value Trees
package http
