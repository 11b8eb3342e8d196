package sheets

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/sheets/sheetstest"
)

func newTestClient(t *testing.T) (*Client, *sheetstest.Server) {
	t.Helper()
	srv := sheetstest.NewServer(t)
	return NewClientFromService(srv.Service(t)), srv
}

func TestValidateInputOption(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: InputUserEntered},
		{in: "RAW", want: InputRaw},
		{in: "user_entered", want: InputUserEntered},
		{in: "FORMULA", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateInputOption(tt.in)
			if tt.wantErr {
				assert.Equal(t, errs.KindValidation, errs.Kind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateAndGetSpreadsheet(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateSpreadsheet(ctx, "Budget", []string{"2025", "2026"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Budget", created.Title)
	assert.Contains(t, created.URL, created.ID)
	require.Len(t, created.Sheets, 2)
	assert.Equal(t, "2026", created.Sheets[1].Title)

	got, err := c.GetSpreadsheet(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, int64(1000), got.Sheets[0].RowCount)
}

func TestCreateSpreadsheetRequiresTitle(t *testing.T) {
	c, srv := newTestClient(t)

	_, err := c.CreateSpreadsheet(context.Background(), "  ", nil)
	assert.Equal(t, errs.KindValidation, errs.Kind(err))
	assert.Empty(t, srv.Requests())
}

func TestGetSpreadsheetNotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetSpreadsheet(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.Kind(err))
	assert.Equal(t, http.StatusNotFound, errs.Status(err))
}

func TestUpdateThenReadValues(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	id := srv.AddSpreadsheet("Data", "Sheet1")

	res, err := c.UpdateValues(ctx, id, "Sheet1!A1", [][]any{{"name", "qty"}, {"apples", "3"}}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.UpdatedRows)
	assert.Equal(t, int64(4), res.UpdatedCells)
	assert.Equal(t, "Sheet1!A1:B2", res.UpdatedRange)

	reqs := srv.Requests()
	assert.Equal(t, InputUserEntered, reqs[len(reqs)-1].Query.Get("valueInputOption"))

	vr, err := c.ReadValues(ctx, id, "Sheet1!A1:B2")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"name", "qty"}, {"apples", "3"}}, vr.Values)
}

func TestReadEmptyRange(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddSpreadsheet("Empty")

	vr, err := c.ReadValues(context.Background(), id, "Sheet1!A1:C3")
	require.NoError(t, err)
	assert.NotNil(t, vr.Values)
	assert.Empty(t, vr.Values)
}

func TestAppendValues(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	id := srv.AddSpreadsheet("Log", "Sheet1")

	_, err := c.UpdateValues(ctx, id, "Sheet1!A1", [][]any{{"header"}}, InputRaw)
	require.NoError(t, err)

	res, err := c.AppendValues(ctx, id, "Sheet1", [][]any{{"first"}, {"second"}}, InputRaw)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A2:A3", res.UpdatedRange)
	assert.Equal(t, id, res.SpreadsheetID)

	assert.Equal(t, [][]any{{"header"}, {"first"}, {"second"}}, srv.Values(id, "Sheet1"))

	reqs := srv.Requests()
	assert.Equal(t, InputRaw, reqs[len(reqs)-1].Query.Get("valueInputOption"))
	assert.Equal(t, "INSERT_ROWS", reqs[len(reqs)-1].Query.Get("insertDataOption"))
}

func TestWriteValidationMakesNoRequests(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"update without id", func() error { _, err := c.UpdateValues(ctx, "", "A1", [][]any{{1}}, ""); return err }},
		{"update without range", func() error { _, err := c.UpdateValues(ctx, "id", "", [][]any{{1}}, ""); return err }},
		{"update without rows", func() error { _, err := c.UpdateValues(ctx, "id", "A1", nil, ""); return err }},
		{"update bad input option", func() error { _, err := c.UpdateValues(ctx, "id", "A1", [][]any{{1}}, "FORMULA"); return err }},
		{"append without rows", func() error { _, err := c.AppendValues(ctx, "id", "A1", [][]any{}, ""); return err }},
		{"read without range", func() error { _, err := c.ReadValues(ctx, "id", " "); return err }},
		{"batch without requests", func() error { _, err := c.BatchUpdate(ctx, "id", nil); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, errs.KindValidation, errs.Kind(tt.call()))
		})
	}
	assert.Empty(t, srv.Requests())
}

func TestBatchUpdateAddSheet(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddSpreadsheet("Report")

	res, err := c.BatchUpdate(context.Background(), id, []*sheetsapi.Request{
		{AddSheet: &sheetsapi.AddSheetRequest{Properties: &sheetsapi.SheetProperties{Title: "Summary"}}},
	})
	require.NoError(t, err)
	require.Len(t, res.Replies, 1)
	require.NotNil(t, res.Replies[0].AddSheet)
	assert.Equal(t, "Summary", res.Replies[0].AddSheet.Properties.Title)

	got, err := c.GetSpreadsheet(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, got.Sheets, 2)
}

func TestUpstreamErrorIsAPIError(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddSpreadsheet("Quota")
	srv.FailNext(http.StatusTooManyRequests)

	_, err := c.ReadValues(context.Background(), id, "Sheet1!A1")
	require.Error(t, err)
	assert.Equal(t, errs.KindAPI, errs.Kind(err))
	assert.Equal(t, http.StatusTooManyRequests, errs.Status(err))
}
