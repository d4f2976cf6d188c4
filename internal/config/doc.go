// Package config builds the runtime configuration of subreport.
//
// Values are layered, later layers overriding earlier ones:
//
//  1. built-in defaults (LoadDefaults)
//  2. environment: a dotenv file (".env" or -env path) merged with the
//     process environment, the process environment winning
//  3. an optional JSON file given with -c or -config
//  4. command-line flags
//
// Only the flags known to this package are picked out of the argument list
// (see flagx.FilterArgs), so subcommands and their own flags pass through.
package config
