// Package sheetstest runs an in-memory fake of the Sheets v4 REST API.
//
// Ranges are understood in the common A1 forms ("Sheet1", "Sheet1!B2",
// "Sheet1!A1:C3", "A1:B2"). Values are stored as written; no formulas are
// evaluated.
package sheetstest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Request records one request received by the fake.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

type tab struct {
	id    int64
	title string
	rows  [][]any
}

type spreadsheet struct {
	id    string
	title string
	tabs  []*tab
}

// Server is the fake Sheets API.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	spreadsheets map[string]*spreadsheet
	requests     []Request
	failures     []int
	nextID       int
	nextSheetID  int64
}

// NewServer starts a fake and registers its shutdown with t.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{spreadsheets: make(map[string]*spreadsheet)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Service returns a Sheets service talking to the fake.
func (s *Server) Service(t testing.TB) *sheetsv4.Service {
	t.Helper()
	svc, err := sheetsv4.NewService(context.Background(),
		option.WithEndpoint(s.URL+"/"),
		option.WithHTTPClient(s.Client()),
	)
	if err != nil {
		t.Fatalf("create sheets service: %v", err)
	}
	return svc
}

// AddSpreadsheet stores a spreadsheet with one tab per name and returns its id.
func (s *Server) AddSpreadsheet(title string, tabs ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(title, tabs).id
}

func (s *Server) addLocked(title string, tabs []string) *spreadsheet {
	s.nextID++
	sp := &spreadsheet{id: fmt.Sprintf("sheet-%04d", s.nextID), title: title}
	if len(tabs) == 0 {
		tabs = []string{"Sheet1"}
	}
	for _, name := range tabs {
		sp.tabs = append(sp.tabs, &tab{id: s.nextSheetID, title: name})
		s.nextSheetID++
	}
	s.spreadsheets[sp.id] = sp
	return sp
}

// Values returns a copy of every row stored in the named tab.
func (s *Server) Values(spreadsheetID, tabName string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spreadsheets[spreadsheetID]
	if !ok {
		return nil
	}
	for _, t := range sp.tabs {
		if t.title == tabName {
			out := make([][]any, len(t.rows))
			for i, row := range t.rows {
				out[i] = append([]any(nil), row...)
			}
			return out
		}
	}
	return nil
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// FailNext makes the next request fail with status.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, status)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})

	if len(s.failures) > 0 {
		status := s.failures[0]
		s.failures = s.failures[1:]
		writeError(w, status, http.StatusText(status))
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets")
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown route "+r.URL.Path)
		return
	}
	rest = strings.TrimPrefix(rest, "/")

	if rest == "" && r.Method == http.MethodPost {
		s.create(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, ":batchUpdate"); ok && r.Method == http.MethodPost {
		s.batchUpdate(w, r, id)
		return
	}

	id, rng, hasValues := strings.Cut(rest, "/values/")
	sp, found := s.spreadsheets[id]
	if !found {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}

	switch {
	case !hasValues && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, toAPI(sp))
	case hasValues && r.Method == http.MethodGet:
		s.read(w, sp, rng)
	case hasValues && r.Method == http.MethodPut:
		s.write(w, r, sp, rng)
	case hasValues && r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		s.append(w, r, sp, strings.TrimSuffix(rng, ":append"))
	default:
		writeError(w, http.StatusNotFound, "Unknown route "+r.Method+" "+r.URL.Path)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req sheetsv4.Spreadsheet
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var title string
	if req.Properties != nil {
		title = req.Properties.Title
	}
	var tabs []string
	for _, sh := range req.Sheets {
		if sh.Properties != nil {
			tabs = append(tabs, sh.Properties.Title)
		}
	}
	writeJSON(w, http.StatusOK, toAPI(s.addLocked(title, tabs)))
}

func (s *Server) batchUpdate(w http.ResponseWriter, r *http.Request, id string) {
	sp, ok := s.spreadsheets[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}
	var req sheetsv4.BatchUpdateSpreadsheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	replies := make([]*sheetsv4.Response, 0, len(req.Requests))
	for _, rq := range req.Requests {
		reply := &sheetsv4.Response{}
		if rq.AddSheet != nil && rq.AddSheet.Properties != nil {
			t := &tab{id: s.nextSheetID, title: rq.AddSheet.Properties.Title}
			s.nextSheetID++
			sp.tabs = append(sp.tabs, t)
			reply.AddSheet = &sheetsv4.AddSheetResponse{Properties: &sheetsv4.SheetProperties{
				SheetId: t.id,
				Title:   t.title,
				Index:   int64(len(sp.tabs) - 1),
			}}
		}
		replies = append(replies, reply)
	}
	writeJSON(w, http.StatusOK, &sheetsv4.BatchUpdateSpreadsheetResponse{SpreadsheetId: id, Replies: replies})
}

func (s *Server) read(w http.ResponseWriter, sp *spreadsheet, rng string) {
	a, err := parseRange(sp, rng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var values [][]any
	for r := a.row; r < len(a.tab.rows) && (a.endRow < 0 || r <= a.endRow); r++ {
		row := a.tab.rows[r]
		out := []any{}
		for c := a.col; c < len(row) && (a.endCol < 0 || c <= a.endCol); c++ {
			out = append(out, row[c])
		}
		values = append(values, out)
	}
	for len(values) > 0 && len(values[len(values)-1]) == 0 {
		values = values[:len(values)-1]
	}
	writeJSON(w, http.StatusOK, &sheetsv4.ValueRange{Range: rng, MajorDimension: "ROWS", Values: values})
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, sp *spreadsheet, rng string) {
	a, err := parseRange(sp, rng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	values, ok := decodeValues(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, put(sp, a.tab, a.row, a.col, values))
}

func (s *Server) append(w http.ResponseWriter, r *http.Request, sp *spreadsheet, rng string) {
	a, err := parseRange(sp, rng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	values, ok := decodeValues(w, r)
	if !ok {
		return
	}
	start := len(a.tab.rows)
	if start < a.row {
		start = a.row
	}
	writeJSON(w, http.StatusOK, &sheetsv4.AppendValuesResponse{
		SpreadsheetId: sp.id,
		TableRange:    a.tab.title + "!" + cellName(a.row, a.col),
		Updates:       put(sp, a.tab, start, a.col, values),
	})
}

func decodeValues(w http.ResponseWriter, r *http.Request) ([][]any, bool) {
	if opt := r.URL.Query().Get("valueInputOption"); opt != "RAW" && opt != "USER_ENTERED" {
		writeError(w, http.StatusBadRequest, "Invalid valueInputOption: "+opt)
		return nil, false
	}
	var vr sheetsv4.ValueRange
	if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return vr.Values, true
}

func put(sp *spreadsheet, t *tab, row, col int, values [][]any) *sheetsv4.UpdateValuesResponse {
	cols := 0
	for i, vals := range values {
		for len(t.rows) <= row+i {
			t.rows = append(t.rows, nil)
		}
		for len(t.rows[row+i]) < col+len(vals) {
			t.rows[row+i] = append(t.rows[row+i], "")
		}
		copy(t.rows[row+i][col:], vals)
		cols = max(cols, len(vals))
	}
	cells := 0
	for _, vals := range values {
		cells += len(vals)
	}
	return &sheetsv4.UpdateValuesResponse{
		SpreadsheetId:  sp.id,
		UpdatedRange:   fmt.Sprintf("%s!%s:%s", t.title, cellName(row, col), cellName(row+len(values)-1, col+cols-1)),
		UpdatedRows:    int64(len(values)),
		UpdatedColumns: int64(cols),
		UpdatedCells:   int64(cells),
	}
}

type area struct {
	tab            *tab
	row, col       int
	endRow, endCol int
}

func parseRange(sp *spreadsheet, rng string) (area, error) {
	name, cells, hasCells := strings.Cut(rng, "!")
	if !hasCells {
		// A bare name is a tab unless it parses as cells.
		cells, name = name, ""
		for _, t := range sp.tabs {
			if t.title == rng {
				cells, name = "", rng
			}
		}
	}
	name = strings.Trim(name, "'")

	a := area{tab: sp.tabs[0], endRow: -1, endCol: -1}
	if name != "" {
		a.tab = nil
		for _, t := range sp.tabs {
			if t.title == name {
				a.tab = t
			}
		}
		if a.tab == nil {
			return area{}, fmt.Errorf("unable to parse range: %s", rng)
		}
	}
	if cells == "" {
		return a, nil
	}

	start, end, hasEnd := strings.Cut(cells, ":")
	var err error
	if a.row, a.col, err = parseCell(start); err != nil {
		return area{}, fmt.Errorf("unable to parse range: %s", rng)
	}
	if hasEnd {
		if a.endRow, a.endCol, err = parseCell(end); err != nil {
			return area{}, fmt.Errorf("unable to parse range: %s", rng)
		}
	}
	return a, nil
}

// parseCell converts "B3" to zero-based (2, 1).
func parseCell(cell string) (row, col int, err error) {
	i := 0
	col = 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(cell) {
		return 0, 0, fmt.Errorf("bad cell %q", cell)
	}
	for _, c := range cell[i:] {
		if c < '0' || c > '9' {
			return 0, 0, fmt.Errorf("bad cell %q", cell)
		}
		row = row*10 + int(c-'0')
	}
	if row == 0 {
		return 0, 0, fmt.Errorf("bad cell %q", cell)
	}
	return row - 1, col - 1, nil
}

func cellName(row, col int) string {
	var letters []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		letters = append([]byte{byte('A' + (n-1)%26)}, letters...)
	}
	return fmt.Sprintf("%s%d", letters, row+1)
}

func toAPI(sp *spreadsheet) *sheetsv4.Spreadsheet {
	out := &sheetsv4.Spreadsheet{
		SpreadsheetId:  sp.id,
		SpreadsheetUrl: "https://docs.google.com/spreadsheets/d/" + sp.id + "/edit",
		Properties:     &sheetsv4.SpreadsheetProperties{Title: sp.title},
	}
	for i, t := range sp.tabs {
		out.Sheets = append(out.Sheets, &sheetsv4.Sheet{Properties: &sheetsv4.SheetProperties{
			SheetId:        t.id,
			Title:          t.title,
			Index:          int64(i),
			GridProperties: &sheetsv4.GridProperties{RowCount: 1000, ColumnCount: 26},
		}})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"status":  strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_"),
		},
	})
}
