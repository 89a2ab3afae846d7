// Package cmd implements the command-line interface for the skunkr key-value
// store. It provides a hierarchical command structure with operations for running
// the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (set, get, scan, info, perf)
//   - serve: Commands for starting and configuring the skunkr server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as an environment variable SKUNKR_<FLAG>, .env and
// .env.local in the working directory are loaded first.
//
// See skunkr -help for a list of all commands.
package cmd
