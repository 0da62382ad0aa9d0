// Package env holds the run's variables and the placeholder substitution
// that reads them.
//
// It provides functionality for:
//   - The Store, seeded from configuration, .env files and the process environment
//   - $NAME and ${NAME} substitution inside Value Trees ($$ for a literal dollar)
//   - Typed replacement when a string is exactly one placeholder
//   - Reporting every undefined reference of a plan at once
package env
