package drive_tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"slices"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gdrive-mcp/internal/drive"
	"github.com/teemow/gdrive-mcp/internal/drive/drivetest"
	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/tools/batch"
	"github.com/teemow/gdrive-mcp/internal/tools/common"
)

type harness struct {
	mcp  *mcpserver.MCPServer
	fake *drivetest.Server
}

func newHarness(t *testing.T, readOnly bool) *harness {
	t.Helper()

	fake := drivetest.NewServer(t)
	client := drive.NewClientFromService(fake.Service(t), drive.Config{
		ServiceAccount: "gdrive-mcp@test-project.iam.gserviceaccount.com",
	})

	sc := server.NewServerContext(context.Background(), server.Options{Drive: client, ReadOnly: readOnly})
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterDriveTools(s, sc, readOnly))
	return &harness{mcp: s, fake: fake}
}

func (h *harness) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	tool, ok := h.mcp.ListTools()[name]
	require.True(t, ok, "tool %s is not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	content, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return content.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, "unexpected error result: %s", text(t, res))
	var v T
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &v))
	return v
}

func decodeError(t *testing.T, res *mcp.CallToolResult) common.ErrorBody {
	t.Helper()
	require.True(t, res.IsError, "expected an error result, got %s", text(t, res))
	var payload common.ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &payload))
	return payload.Error
}

func toolNames(s *mcpserver.MCPServer) []string {
	var names []string
	for name := range s.ListTools() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func TestRegisterDriveTools(t *testing.T) {
	h := newHarness(t, false)
	assert.Equal(t, []string{
		"create_folder",
		"debug_api_connection",
		"delete_file",
		"download_file",
		"get_file_info",
		"list_files",
		"share_file",
		"upload_file",
	}, toolNames(h.mcp))
}

func TestRegisterDriveToolsReadOnly(t *testing.T) {
	h := newHarness(t, true)
	assert.Equal(t, []string{
		"debug_api_connection",
		"download_file",
		"get_file_info",
		"list_files",
	}, toolNames(h.mcp))
}

func TestRegisterDriveToolsRequiresClient(t *testing.T) {
	sc := server.NewServerContext(context.Background(), server.Options{})
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "1.0.0")
	assert.Error(t, RegisterDriveTools(s, sc, false))
}

func TestListFilesPaging(t *testing.T) {
	h := newHarness(t, true)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		h.fake.AddFile(drivetest.File{Name: name, MimeType: "text/plain"})
	}

	first := decode[drive.FileList](t, h.call(t, "list_files", map[string]any{"page_size": float64(2)}))
	require.Len(t, first.Files, 2)
	assert.Equal(t, "a.txt", first.Files[0].Name)
	require.NotEmpty(t, first.NextPageToken)

	second := decode[drive.FileList](t, h.call(t, "list_files", map[string]any{
		"page_size":  float64(2),
		"page_token": first.NextPageToken,
	}))
	require.Len(t, second.Files, 1)
	assert.Equal(t, "c.txt", second.Files[0].Name)
	assert.Empty(t, second.NextPageToken)

	// One request per call: pages are never aggregated.
	requests := h.fake.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, first.NextPageToken, requests[1].Query.Get("pageToken"))
}

func TestListFilesInvalidPageSize(t *testing.T) {
	h := newHarness(t, true)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		h.fake.AddFile(drivetest.File{Name: name, MimeType: "text/plain"})
	}

	for _, size := range []float64{0, -1, 1001} {
		body := decodeError(t, h.call(t, "list_files", map[string]any{"page_size": size}))
		assert.Equal(t, errs.KindValidation, body.Kind, "page_size %v", size)
	}
	assert.Empty(t, h.fake.Requests())
}

func TestListFilesExcludesTrashByDefault(t *testing.T) {
	h := newHarness(t, true)
	h.fake.AddFile(drivetest.File{Name: "kept.txt", MimeType: "text/plain"})
	h.fake.AddFile(drivetest.File{Name: "binned.txt", MimeType: "text/plain", Trashed: true})

	tool, ok := h.mcp.ListTools()["list_files"]
	require.True(t, ok)
	assert.Contains(t, tool.Tool.Description, "include_trashed")

	page := decode[drive.FileList](t, h.call(t, "list_files", nil))
	require.Len(t, page.Files, 1)
	assert.Equal(t, "kept.txt", page.Files[0].Name)

	page = decode[drive.FileList](t, h.call(t, "list_files", map[string]any{"include_trashed": true}))
	assert.Len(t, page.Files, 2)
}

func TestListFilesDefaultPageSize(t *testing.T) {
	h := newHarness(t, true)
	h.fake.AddFile(drivetest.File{Name: "a.txt", MimeType: "text/plain"})

	decode[drive.FileList](t, h.call(t, "list_files", nil))
	requests := h.fake.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "10", requests[0].Query.Get("pageSize"))
}

func TestGetFileInfo(t *testing.T) {
	h := newHarness(t, true)
	id := h.fake.AddFile(drivetest.File{Name: "report.pdf", MimeType: "application/pdf", Content: []byte("%PDF")})

	info := decode[drive.FileInfo](t, h.call(t, "get_file_info", map[string]any{"file_id": id}))
	assert.Equal(t, id, info.ID)
	assert.Equal(t, "report.pdf", info.Name)
	assert.Equal(t, "application/pdf", info.MimeType)
}

func TestGetFileInfoNotFound(t *testing.T) {
	h := newHarness(t, true)

	body := decodeError(t, h.call(t, "get_file_info", map[string]any{"file_id": "missing"}))
	assert.Equal(t, errs.KindNotFound, body.Kind)
	assert.Equal(t, http.StatusNotFound, body.Status)
	assert.NotEmpty(t, body.InvocationID)
}

func TestGetFileInfoMissingArgument(t *testing.T) {
	h := newHarness(t, true)

	body := decodeError(t, h.call(t, "get_file_info", map[string]any{}))
	assert.Equal(t, errs.KindValidation, body.Kind)
	assert.Contains(t, body.Message, "file_id")
	assert.Empty(t, h.fake.Requests())
}

func TestUploadThenDownload(t *testing.T) {
	h := newHarness(t, false)
	folder := h.fake.AddFile(drivetest.File{Name: "Reports", MimeType: "application/vnd.google-apps.folder"})

	uploaded := decode[drive.FileInfo](t, h.call(t, "upload_file", map[string]any{
		"name":             "notes.txt",
		"content":          base64.StdEncoding.EncodeToString([]byte("hello drive")),
		"parent_folder_id": folder,
	}))
	assert.Equal(t, "notes.txt", uploaded.Name)
	assert.Equal(t, drive.DefaultUploadMimeType, uploaded.MimeType)
	assert.Equal(t, []string{folder}, uploaded.Parents)

	stored, ok := h.fake.File(uploaded.ID)
	require.True(t, ok)
	assert.Equal(t, "hello drive", string(stored.Content))

	dl := decode[drive.Download](t, h.call(t, "download_file", map[string]any{"file_id": uploaded.ID}))
	assert.Equal(t, "hello drive", string(dl.Content))
	assert.False(t, dl.Exported)
}

func TestUploadRejectsInvalidBase64(t *testing.T) {
	h := newHarness(t, false)

	body := decodeError(t, h.call(t, "upload_file", map[string]any{
		"name":    "notes.txt",
		"content": "not base64!",
	}))
	assert.Equal(t, errs.KindValidation, body.Kind)
	assert.Contains(t, body.Message, "content")
	assert.Empty(t, h.fake.Requests())
}

func TestDeleteFile(t *testing.T) {
	h := newHarness(t, false)
	id := h.fake.AddFile(drivetest.File{Name: "old.txt", MimeType: "text/plain"})

	out := decode[map[string]any](t, h.call(t, "delete_file", map[string]any{"file_id": id}))
	assert.Equal(t, id, out["id"])
	assert.Equal(t, true, out["deleted"])

	_, ok := h.fake.File(id)
	assert.False(t, ok)
}

func TestCreateFolder(t *testing.T) {
	h := newHarness(t, false)

	folder := decode[drive.FileInfo](t, h.call(t, "create_folder", map[string]any{"name": "Invoices"}))
	assert.Equal(t, "Invoices", folder.Name)
	assert.True(t, folder.IsFolder())
}

func TestShareFile(t *testing.T) {
	h := newHarness(t, false)
	id := h.fake.AddFile(drivetest.File{Name: "plan.txt", MimeType: "text/plain"})

	perm := decode[drive.Permission](t, h.call(t, "share_file", map[string]any{
		"file_id": id,
		"email":   "alice@example.com",
		"role":    "writer",
	}))
	assert.Equal(t, "writer", perm.Role)
	assert.Equal(t, "alice@example.com", perm.EmailAddress)

	grants := h.fake.Permissions(id)
	require.Len(t, grants, 1)
	assert.Equal(t, "user", grants[0].Type)
}

func TestShareFileDefaultsToReader(t *testing.T) {
	h := newHarness(t, false)
	id := h.fake.AddFile(drivetest.File{Name: "plan.txt", MimeType: "text/plain"})

	perm := decode[drive.Permission](t, h.call(t, "share_file", map[string]any{
		"file_id": id,
		"email":   "bob@example.com",
	}))
	assert.Equal(t, drive.RoleReader, perm.Role)
}

func TestShareFileInvalidRole(t *testing.T) {
	h := newHarness(t, false)
	id := h.fake.AddFile(drivetest.File{Name: "plan.txt", MimeType: "text/plain"})

	body := decodeError(t, h.call(t, "share_file", map[string]any{
		"file_id": id,
		"email":   "alice@example.com",
		"role":    "admin",
	}))
	assert.Equal(t, errs.KindValidation, body.Kind)
	assert.Contains(t, body.Message, "admin")
	assert.Empty(t, h.fake.Requests())
	assert.Empty(t, h.fake.Permissions(id))
}

func TestDebugAPIConnection(t *testing.T) {
	h := newHarness(t, true)

	report := decode[drive.ConnectionReport](t, h.call(t, "debug_api_connection", nil))
	assert.Equal(t, "success", report.APITest)
	assert.Equal(t, "gdrive-mcp@test-project.iam.gserviceaccount.com", report.ServiceAccount)
	require.NotNil(t, report.User)
	require.NotNil(t, report.StorageQuota)

	for _, r := range h.fake.Requests() {
		assert.False(t, r.IsWrite(), "%s %s", r.Method, r.Path)
	}
}

func TestDebugAPIConnectionReportsFailure(t *testing.T) {
	h := newHarness(t, true)
	h.fake.FailNext(http.StatusForbidden, "Insufficient Permission")

	res := h.call(t, "debug_api_connection", nil)
	report := decode[drive.ConnectionReport](t, res)
	assert.Equal(t, "failed", report.APITest)
	assert.Equal(t, http.StatusForbidden, report.ErrorStatus)
	assert.Contains(t, report.Error, "Insufficient Permission")
}

func TestDeleteFileBatch(t *testing.T) {
	h := newHarness(t, false)
	a := h.fake.AddFile(drivetest.File{Name: "a.txt", MimeType: "text/plain"})
	b := h.fake.AddFile(drivetest.File{Name: "b.txt", MimeType: "text/plain"})

	res := h.call(t, "delete_file", map[string]any{
		"file_id": []any{a, "missing", b},
	})
	raw := decode[map[string]any](t, res)
	for _, key := range []string{"total", "succeeded", "failed", "results"} {
		assert.Contains(t, raw, key)
	}

	out := decode[batch.BatchResult](t, res)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 3)
	assert.Equal(t, "missing", out.Results[1].ID)
	assert.Equal(t, errs.KindNotFound, out.Results[1].ErrorKind)

	_, ok := h.fake.File(a)
	assert.False(t, ok)
	_, ok = h.fake.File(b)
	assert.False(t, ok)
}

func TestGetFileInfoBatchFromJSONString(t *testing.T) {
	h := newHarness(t, true)
	a := h.fake.AddFile(drivetest.File{Name: "a.txt", MimeType: "text/plain"})
	b := h.fake.AddFile(drivetest.File{Name: "b.txt", MimeType: "text/plain"})

	out := decode[batch.BatchResult](t, h.call(t, "get_file_info", map[string]any{
		"file_id": `["` + a + `", "` + b + `"]`,
	}))
	assert.Equal(t, 2, out.Succeeded)
	require.Len(t, out.Results, 2)
	assert.Equal(t, a, out.Results[0].ID)
}
