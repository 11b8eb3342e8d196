// Package sheets_tools registers the Google Sheets MCP tools. Spreadsheets
// are ordinary Drive files, so the Drive tools list, share and delete them;
// these tools work on their cells and structure.
package sheets_tools
