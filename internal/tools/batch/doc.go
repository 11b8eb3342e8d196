// Package batch runs one tool operation over several ids.
//
// This package includes helpers for:
//   - Parsing parameters that accept a single id, an array or a JSON array
//   - Running the operation with bounded concurrency
//   - Reporting partial failures per id
package batch
