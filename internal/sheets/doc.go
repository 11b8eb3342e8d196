// Package sheets wraps the Google Sheets v4 API for the spreadsheet tools.
//
// The client authenticates with the same service account as the Drive
// client. Upstream failures are classified with errs.FromGoogle, so a missing
// spreadsheet surfaces as a NotFoundError and every other failure as an
// APIError carrying the HTTP status.
package sheets
