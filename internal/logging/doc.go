// Package logging provides structured logging utilities for gdrive-mcp.
//
// It builds the process logger from configuration (New) and centralizes the
// attribute names used across the codebase so log lines stay queryable.
//
//	logger := logging.WithTool(slog.Default(), "get_file_info")
//	logger.Info("file fetched", logging.FileID(id), logging.Status(logging.StatusSuccess))
//
// Share recipients are logged as hashes (UserHash) and tokens only as a length
// indicator (SanitizeToken).
package logging
