package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/google"
	"github.com/teemow/gdrive-mcp/internal/instrumentation"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"

	// DefaultUploadMimeType is used when an upload does not name a content type
	DefaultUploadMimeType = "text/plain"

	// DefaultPageSize is used when a listing does not name a page size
	DefaultPageSize = 10

	// MaxPageSize is the largest page the Drive API serves
	MaxPageSize = 1000

	// DefaultMaxDownloadBytes caps downloads when Config leaves it unset
	DefaultMaxDownloadBytes = 10 * 1024 * 1024

	workspaceMimePrefix = "application/vnd.google-apps."
)

// Share roles accepted by ShareFile.
const (
	RoleReader    = "reader"
	RoleCommenter = "commenter"
	RoleWriter    = "writer"
	RoleOwner     = "owner"
)

// Roles lists the share roles in ascending order of privilege.
var Roles = []string{RoleReader, RoleCommenter, RoleWriter, RoleOwner}

// exportFormats maps Google Workspace document types to the format they are
// exported as by DownloadFile.
var exportFormats = map[string]string{
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.presentation": "text/plain",
	"application/vnd.google-apps.drawing":      "image/png",
	"application/vnd.google-apps.script":       "application/vnd.google-apps.script+json",
}

const fileFields = "id, name, mimeType, size, parents, createdTime, modifiedTime, webViewLink, webContentLink, owners, shared, trashed"

// TokenReporter describes the credentials a client authenticates with.
type TokenReporter interface {
	TokenStatus() google.TokenStatus
}

// Config tunes a Client.
type Config struct {
	// MaxDownloadBytes caps DownloadFile; DefaultMaxDownloadBytes when zero
	MaxDownloadBytes int64

	// ServiceAccount is the identity reported by CheckConnection
	ServiceAccount string

	// Tokens reports token state to CheckConnection; optional
	Tokens TokenReporter
}

// Client wraps the Google Drive API service. It is safe for concurrent use.
type Client struct {
	service *drive.Service
	cfg     Config
}

// NewClient creates a Drive client. Authentication and endpoint come from opts,
// typically the service account's client options.
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return NewClientFromService(svc, cfg), nil
}

// NewClientFromService wraps an existing Drive service.
func NewClientFromService(svc *drive.Service, cfg Config) *Client {
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = DefaultMaxDownloadBytes
	}
	return &Client{service: svc, cfg: cfg}
}

// MaxDownloadBytes returns the download cap in effect.
func (c *Client) MaxDownloadBytes() int64 {
	return c.cfg.MaxDownloadBytes
}

// ListFiles returns one page of files. The page token is passed through
// untouched in both directions; callers drive pagination. PageSize must be
// set; callers without a preference pass DefaultPageSize.
func (c *Client) ListFiles(ctx context.Context, options ListOptions) (*FileList, error) {
	if options.PageSize < 1 || options.PageSize > MaxPageSize {
		return nil, errs.Validation("page_size", "must be between 1 and %d, got %d", MaxPageSize, options.PageSize)
	}

	call := c.service.Files.List().
		Context(ctx).
		PageSize(int64(options.PageSize)).
		Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")"))

	if q := buildListFilesQuery(options.Query, options.IncludeTrashed); q != "" {
		call = call.Q(q)
	}
	if options.PageToken != "" {
		call = call.PageToken(options.PageToken)
	}
	if options.OrderBy != "" {
		call = call.OrderBy(options.OrderBy)
	}

	fileList, err := call.Do()
	if err != nil {
		return nil, errs.FromGoogle("files.list", "file", "", err)
	}

	files := make([]*FileInfo, len(fileList.Files))
	for i, f := range fileList.Files {
		files[i] = convertToFileInfo(f)
	}

	return &FileList{Files: files, NextPageToken: fileList.NextPageToken}, nil
}

// buildListFilesQuery combines a user query with the trash filter.
func buildListFilesQuery(userQuery string, includeTrashed bool) string {
	userQuery = strings.TrimSpace(userQuery)
	switch {
	case includeTrashed:
		return userQuery
	case userQuery == "":
		return "trashed=false"
	default:
		return "(" + userQuery + ") and trashed=false"
	}
}

// GetFile retrieves metadata for a specific file
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, errs.Validation("file_id", "is required")
	}

	file, err := c.service.Files.Get(fileID).
		Context(ctx).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, errs.FromGoogle("files.get", "file", fileID, err)
	}

	return convertToFileInfo(file), nil
}

// UploadFile uploads content as a new file and returns its metadata
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader, options UploadOptions) (*FileInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("name", "is required")
	}
	if content == nil {
		return nil, errs.Validation("content", "is required")
	}

	mimeType := options.MimeType
	if mimeType == "" {
		mimeType = DefaultUploadMimeType
	}

	file := &drive.File{
		Name:        name,
		MimeType:    mimeType,
		Description: options.Description,
	}
	if options.ParentID != "" {
		file.Parents = []string{options.ParentID}
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, "drive", "files.create",
		instrumentation.NewSpanAttributeBuilder().WithMimeType(mimeType).Build()...)
	defer span.End()

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Media(content, googleapi.ContentType(mimeType)).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		err = errs.FromGoogle("files.create", "folder", options.ParentID, err)
		instrumentation.SetSpanError(span, err, errs.Kind(err))
		return nil, err
	}

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithFileID(driveFile.Id).
		WithBytes(driveFile.Size).
		Build()...)
	instrumentation.SetSpanSuccess(span)
	return convertToFileInfo(driveFile), nil
}

// DownloadFile fetches the content of a file. Google Workspace documents are
// exported (see exportFormats). Content larger than the configured cap is
// refused with a ValidationError.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (*Download, error) {
	if fileID == "" {
		return nil, errs.Validation("file_id", "is required")
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, "drive", "files.download",
		instrumentation.NewSpanAttributeBuilder().WithFileID(fileID).Build()...)
	defer span.End()

	dl, err := c.download(ctx, span, fileID)
	if err != nil {
		instrumentation.SetSpanError(span, err, errs.Kind(err))
		return nil, err
	}

	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithMimeType(dl.MimeType).
		WithBytes(dl.Size).
		Build()...)
	instrumentation.SetSpanSuccess(span)
	return dl, nil
}

func (c *Client) download(ctx context.Context, span trace.Span, fileID string) (*Download, error) {
	meta, err := c.service.Files.Get(fileID).
		Context(ctx).
		Fields("id, name, mimeType, size").
		Do()
	if err != nil {
		return nil, errs.FromGoogle("files.get", "file", fileID, err)
	}

	dl := &Download{ID: meta.Id, Name: meta.Name, MimeType: meta.MimeType}

	var resp *http.Response
	if exportMime, ok := exportFormats[meta.MimeType]; ok {
		dl.MimeType = exportMime
		dl.Exported = true
		instrumentation.AddSpanEvent(span, "export",
			instrumentation.NewSpanAttributeBuilder().WithMimeType(exportMime).Build()...)
		resp, err = c.service.Files.Export(fileID, exportMime).Context(ctx).Download()
		if err != nil {
			return nil, errs.FromGoogle("files.export", "file", fileID, err)
		}
	} else {
		if strings.HasPrefix(meta.MimeType, workspaceMimePrefix) {
			return nil, errs.Validation("file_id", "%s has type %s, which has no downloadable content", fileID, meta.MimeType)
		}
		if meta.Size > c.cfg.MaxDownloadBytes {
			return nil, tooLarge(fileID, meta.Size, c.cfg.MaxDownloadBytes)
		}
		resp, err = c.service.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return nil, errs.FromGoogle("files.download", "file", fileID, err)
		}
	}
	defer func() { _ = resp.Body.Close() }()

	content, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxDownloadBytes+1))
	if err != nil {
		return nil, errs.FromGoogle("files.download", "file", fileID, err)
	}
	if int64(len(content)) > c.cfg.MaxDownloadBytes {
		return nil, tooLarge(fileID, int64(len(content)), c.cfg.MaxDownloadBytes)
	}

	dl.Content = content
	dl.Size = int64(len(content))
	return dl, nil
}

func tooLarge(fileID string, size, limit int64) error {
	return errs.Validation("file_id", "%s is %d bytes, larger than the %d byte download limit", fileID, size, limit)
}

// DeleteFile permanently deletes a file, bypassing the trash
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return errs.Validation("file_id", "is required")
	}

	if err := c.service.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return errs.FromGoogle("files.delete", "file", fileID, err)
	}
	return nil
}

// CreateFolder creates a new folder, optionally inside parentID
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*FileInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("name", "is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if parentID != "" {
		file.Parents = []string{parentID}
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, errs.FromGoogle("files.create", "folder", parentID, err)
	}

	return convertToFileInfo(driveFile), nil
}

// ValidateRole checks role against Roles.
func ValidateRole(role string) error {
	if !slices.Contains(Roles, role) {
		return errs.Validation("role", "unsupported role %q (want one of %s)", role, strings.Join(Roles, ", "))
	}
	return nil
}

// ShareFile grants a user access to a file. Arguments are validated before
// any request is made. Ownership transfers always notify the new owner, which
// the API requires.
func (c *Client) ShareFile(ctx context.Context, fileID string, options ShareOptions) (*Permission, error) {
	if fileID == "" {
		return nil, errs.Validation("file_id", "is required")
	}
	if err := ValidateRole(options.Role); err != nil {
		return nil, err
	}
	if strings.TrimSpace(options.EmailAddress) == "" {
		return nil, errs.Validation("email", "is required")
	}

	permission := &drive.Permission{
		Type:         "user",
		Role:         options.Role,
		EmailAddress: strings.TrimSpace(options.EmailAddress),
	}

	call := c.service.Permissions.Create(fileID, permission).
		Context(ctx).
		Fields("id, type, role, emailAddress, displayName").
		SendNotificationEmail(options.SendNotificationEmail || options.Role == RoleOwner)

	if options.EmailMessage != "" {
		call = call.EmailMessage(options.EmailMessage)
	}
	if options.Role == RoleOwner {
		call = call.TransferOwnership(true)
	}

	drivePermission, err := call.Do()
	if err != nil {
		return nil, errs.FromGoogle("permissions.create", "file", fileID, err)
	}

	return convertToPermission(drivePermission), nil
}

// CheckConnection reports token state and issues one read-only about.get call.
// An API failure is recorded in the report rather than returned.
func (c *Client) CheckConnection(ctx context.Context) *ConnectionReport {
	report := &ConnectionReport{ServiceAccount: c.cfg.ServiceAccount}
	if c.cfg.Tokens != nil {
		report.Token = c.cfg.Tokens.TokenStatus()
	}

	about, err := c.service.About.Get().
		Context(ctx).
		Fields("user, storageQuota").
		Do()
	if err != nil {
		err = errs.FromGoogle("about.get", "about", "", err)
		report.APITest = "failed"
		report.Error = err.Error()
		report.ErrorStatus = errs.Status(err)
		return report
	}

	report.APITest = "success"
	if about.User != nil {
		report.User = &User{
			DisplayName:  about.User.DisplayName,
			EmailAddress: about.User.EmailAddress,
			PhotoLink:    about.User.PhotoLink,
		}
	}
	if q := about.StorageQuota; q != nil {
		report.StorageQuota = &StorageQuota{
			Limit:             q.Limit,
			Usage:             q.Usage,
			UsageInDrive:      q.UsageInDrive,
			UsageInDriveTrash: q.UsageInDriveTrash,
		}
	}
	return report
}

// convertToFileInfo converts a Drive API File to our FileInfo type
func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Size:           f.Size,
		Parents:        f.Parents,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Shared:         f.Shared,
		Trashed:        f.Trashed,
	}

	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		fileInfo.CreatedTime = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		fileInfo.ModifiedTime = t
	}

	for _, owner := range f.Owners {
		fileInfo.Owners = append(fileInfo.Owners, User{
			DisplayName:  owner.DisplayName,
			EmailAddress: owner.EmailAddress,
			PhotoLink:    owner.PhotoLink,
		})
	}

	return fileInfo
}

// convertToPermission converts a Drive API Permission to our Permission type
func convertToPermission(p *drive.Permission) *Permission {
	return &Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		DisplayName:  p.DisplayName,
	}
}
