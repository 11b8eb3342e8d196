// Package cmd implements the command-line interface for gdrive-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing Google Drive and Sheets tools
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - healthcheck: Probe /server-info of a running server
//
// The serve command is the default command when no subcommand is specified.
package cmd
