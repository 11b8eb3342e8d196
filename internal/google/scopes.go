package google

// Google API scopes used by the Drive and Sheets clients.
const (
	DriveScope         = "https://www.googleapis.com/auth/drive"
	DriveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"
	SheetsScope        = "https://www.googleapis.com/auth/spreadsheets"
)

// DefaultScopes are requested when GOOGLE_DRIVE_SCOPES is not set. The Sheets
// API accepts the Drive scope, so one scope covers every tool.
var DefaultScopes = []string{DriveScope}
