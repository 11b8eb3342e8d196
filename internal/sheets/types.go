package sheets

import (
	sheets "google.golang.org/api/sheets/v4"
)

// Spreadsheet describes a spreadsheet and its tabs.
type Spreadsheet struct {
	ID     string  `json:"spreadsheetId"`
	Title  string  `json:"title"`
	URL    string  `json:"spreadsheetUrl"`
	Sheets []Sheet `json:"sheets,omitempty"`
}

// Sheet is one tab of a spreadsheet.
type Sheet struct {
	ID          int64  `json:"sheetId"`
	Title       string `json:"title"`
	Index       int64  `json:"index"`
	RowCount    int64  `json:"rowCount,omitempty"`
	ColumnCount int64  `json:"columnCount,omitempty"`
}

// ValueRange is a rectangle of cell values in A1 notation.
type ValueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

// UpdateResult reports what a write touched.
type UpdateResult struct {
	SpreadsheetID  string `json:"spreadsheetId"`
	UpdatedRange   string `json:"updatedRange"`
	UpdatedRows    int64  `json:"updatedRows"`
	UpdatedColumns int64  `json:"updatedColumns"`
	UpdatedCells   int64  `json:"updatedCells"`
}

// AppendResult reports where appended rows landed. TableRange is the table
// the rows were appended to.
type AppendResult struct {
	TableRange string `json:"tableRange,omitempty"`
	UpdateResult
}

// BatchUpdateResult holds one reply per request, in request order.
type BatchUpdateResult struct {
	SpreadsheetID string             `json:"spreadsheetId"`
	Replies       []*sheets.Response `json:"replies"`
}
