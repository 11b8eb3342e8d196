// Package drive_tools registers the Google Drive MCP tools.
//
// Read tools (always registered):
//   - list_files: one page of files; the caller follows nextPageToken
//   - get_file_info: metadata for one file
//   - download_file: base64 content, exporting Workspace documents
//   - debug_api_connection: token state plus an about.get probe
//
// Write tools (hidden in read-only mode):
//   - upload_file, delete_file, create_folder, share_file
package drive_tools
