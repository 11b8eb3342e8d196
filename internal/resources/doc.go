// Package resources provides read-only MCP resources describing the server's
// Google identity. Clients read them to learn which account files are owned
// by and which folders must be shared with it.
package resources
