// Package plan loads testplans.
//
// A testplan is a TOML document with an [in] section describing one HTTP
// request and an [out] section describing the expected response subset
// and the variables to capture from it. Directories are walked recursively
// and their plans run in lexical path order, so numeric prefixes such as
// 10_create.toml and 20_get.toml control execution order.
package plan
