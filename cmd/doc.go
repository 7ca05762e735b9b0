// Package cmd implements the command-line interface of dDoc. It provides a
// hierarchical command structure for reading documents lazily from a document database.
//
// The package is organized into several subpackages:
//
//   - docs: Commands for reading documents (load, starts-with, query, lazy, bench)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ddoc -help for a list of all commands.
package cmd
