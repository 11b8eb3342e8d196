// Package drivetest runs an in-memory fake of the Drive v3 REST API so the real
// client library can be exercised in tests.
package drivetest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// File is a file stored by the fake.
type File struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	Content  []byte
	Trashed  bool
	Modified time.Time
}

// Request records one request received by the fake.
type Request struct {
	Method string
	Path   string
	Query  url.Values
}

// IsWrite reports whether the request can mutate state.
func (r Request) IsWrite() bool {
	return r.Method != http.MethodGet && r.Method != http.MethodHead
}

type failure struct {
	status  int
	message string
}

// Server is the fake Drive API.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	files       map[string]*File
	order       []string
	permissions map[string][]*drivev3.Permission
	requests    []Request
	failures    []failure
	nextID      int

	// About is served for about.get.
	About drivev3.About
}

var (
	parentsRe      = regexp.MustCompile(`'([^']+)' in parents`)
	nameContainsRe = regexp.MustCompile(`name contains '([^']*)'`)
)

// NewServer starts a fake and registers its shutdown with t.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		files:       make(map[string]*File),
		permissions: make(map[string][]*drivev3.Permission),
		About: drivev3.About{
			User: &drivev3.User{
				DisplayName:  "gdrive-mcp",
				EmailAddress: "gdrive-mcp@test-project.iam.gserviceaccount.com",
			},
			StorageQuota: &drivev3.AboutStorageQuota{
				Limit:        15 * 1024 * 1024 * 1024,
				Usage:        2048,
				UsageInDrive: 1024,
			},
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Service returns a Drive service talking to the fake.
func (s *Server) Service(t testing.TB) *drivev3.Service {
	t.Helper()
	svc, err := drivev3.NewService(context.Background(),
		option.WithEndpoint(s.URL+"/"),
		option.WithHTTPClient(s.Client()),
	)
	if err != nil {
		t.Fatalf("create drive service: %v", err)
	}
	return svc
}

// AddFile stores f and returns its id. An id is assigned when f.ID is empty.
func (s *Server) AddFile(f File) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(f)
}

func (s *Server) addLocked(f File) string {
	if f.ID == "" {
		s.nextID++
		f.ID = fmt.Sprintf("file-%04d", s.nextID)
	}
	if f.Modified.IsZero() {
		f.Modified = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	s.files[f.ID] = &f
	s.order = append(s.order, f.ID)
	return f.ID
}

// File returns a copy of the stored file.
func (s *Server) File(id string) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return File{}, false
	}
	return *f, true
}

// Permissions returns the grants created on a file.
func (s *Server) Permissions(fileID string) []*drivev3.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*drivev3.Permission(nil), s.permissions[fileID]...)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// FailNext makes the next request fail with the given status and message.
func (s *Server) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, message: message})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})

	if len(s.failures) > 0 {
		f := s.failures[0]
		s.failures = s.failures[1:]
		writeError(w, f.status, f.message)
		return
	}

	path := r.URL.Path
	for _, prefix := range []string{"/upload/drive/v3", "/drive/v3", "/upload"} {
		path = strings.TrimPrefix(path, prefix)
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "about" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, &s.About)
	case len(parts) == 1 && parts[0] == "files" && r.Method == http.MethodGet:
		s.list(w, r)
	case len(parts) == 1 && parts[0] == "files" && r.Method == http.MethodPost:
		s.create(w, r)
	case len(parts) == 2 && parts[0] == "files" && r.Method == http.MethodGet:
		s.get(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "files" && r.Method == http.MethodDelete:
		s.delete(w, parts[1])
	case len(parts) == 3 && parts[0] == "files" && parts[2] == "export" && r.Method == http.MethodGet:
		s.export(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "files" && parts[2] == "permissions" && r.Method == http.MethodPost:
		s.share(w, r, parts[1])
	default:
		writeError(w, http.StatusNotFound, "Unknown route "+r.Method+" "+r.URL.Path)
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pageSize := 100
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "Invalid value for pageSize")
			return
		}
		pageSize = n
	}

	offset := 0
	if tok := q.Get("pageToken"); tok != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(tok, "cursor:"))
		if err != nil || !strings.HasPrefix(tok, "cursor:") {
			writeError(w, http.StatusBadRequest, "Invalid Value")
			return
		}
		offset = n
	}

	matches := s.filter(q.Get("q"))
	if offset > len(matches) {
		offset = len(matches)
	}
	end := min(offset+pageSize, len(matches))

	out := &drivev3.FileList{Files: []*drivev3.File{}}
	for _, f := range matches[offset:end] {
		out.Files = append(out.Files, toAPI(f))
	}
	if end < len(matches) {
		out.NextPageToken = "cursor:" + strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) filter(query string) []*File {
	var matches []*File
	for _, id := range s.order {
		f, ok := s.files[id]
		if !ok {
			continue
		}
		if strings.Contains(query, "trashed=false") && f.Trashed {
			continue
		}
		if m := parentsRe.FindStringSubmatch(query); m != nil && !contains(f.Parents, m[1]) {
			continue
		}
		if m := nameContainsRe.FindStringSubmatch(query); m != nil && !strings.Contains(f.Name, m[1]) {
			continue
		}
		matches = append(matches, f)
	}
	return matches
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var (
		meta    drivev3.File
		content []byte
		ctype   string
	)

	if r.URL.Query().Get("uploadType") != "" {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
			writeError(w, http.StatusBadRequest, "expected a multipart upload")
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])

		part, err := mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing metadata part")
			return
		}
		if err := json.NewDecoder(part).Decode(&meta); err != nil {
			writeError(w, http.StatusBadRequest, "invalid metadata")
			return
		}

		part, err = mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing media part")
			return
		}
		ctype = part.Header.Get("Content-Type")
		if content, err = io.ReadAll(part); err != nil {
			writeError(w, http.StatusBadRequest, "unreadable media")
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata")
		return
	}

	for _, p := range meta.Parents {
		if f, ok := s.files[p]; !ok || f.MimeType != folderMimeType {
			writeError(w, http.StatusNotFound, "File not found: "+p+".")
			return
		}
	}

	mimeType := meta.MimeType
	if mimeType == "" {
		mimeType = ctype
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	id := s.addLocked(File{
		Name:     meta.Name,
		MimeType: mimeType,
		Parents:  meta.Parents,
		Content:  content,
	})
	writeJSON(w, http.StatusOK, toAPI(s.files[id]))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request, id string) {
	f, ok := s.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	if r.URL.Query().Get("alt") == "media" {
		if strings.HasPrefix(f.MimeType, "application/vnd.google-apps.") {
			writeError(w, http.StatusForbidden, "Only files with binary content can be downloaded. Use Export with Docs Editors files.")
			return
		}
		w.Header().Set("Content-Type", f.MimeType)
		_, _ = w.Write(f.Content)
		return
	}

	writeJSON(w, http.StatusOK, toAPI(f))
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, id string) {
	f, ok := s.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	w.Header().Set("Content-Type", r.URL.Query().Get("mimeType"))
	_, _ = w.Write(f.Content)
}

func (s *Server) delete(w http.ResponseWriter, id string) {
	if _, ok := s.files[id]; !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}
	delete(s.files, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) share(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.files[id]; !ok {
		writeError(w, http.StatusNotFound, "File not found: "+id+".")
		return
	}

	var perm drivev3.Permission
	if err := json.NewDecoder(r.Body).Decode(&perm); err != nil {
		writeError(w, http.StatusBadRequest, "invalid permission")
		return
	}
	if perm.Role == "owner" && r.URL.Query().Get("transferOwnership") != "true" {
		writeError(w, http.StatusForbidden, "The transferOwnership parameter must be enabled when the permission role is 'owner'.")
		return
	}

	perm.Id = fmt.Sprintf("perm-%d", len(s.permissions[id])+1)
	s.permissions[id] = append(s.permissions[id], &perm)
	writeJSON(w, http.StatusOK, &perm)
}

func toAPI(f *File) *drivev3.File {
	out := &drivev3.File{
		Id:           f.ID,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Parents:      f.Parents,
		Trashed:      f.Trashed,
		CreatedTime:  f.Modified.Format(time.RFC3339),
		ModifiedTime: f.Modified.Format(time.RFC3339),
		WebViewLink:  "https://drive.google.com/file/d/" + f.ID + "/view",
	}
	if !strings.HasPrefix(f.MimeType, "application/vnd.google-apps.") {
		out.Size = int64(len(f.Content))
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
			"errors": []map[string]string{
				{"domain": "global", "reason": http.StatusText(status), "message": message},
			},
		},
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
