package drive

import (
	"time"

	"github.com/teemow/gdrive-mcp/internal/google"
)

// FileInfo represents metadata about a file or folder in Google Drive
type FileInfo struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Name is the name of the file
	Name string `json:"name"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mimeType"`

	// Size is the size of the file in bytes (not populated for folders and Google documents)
	Size int64 `json:"size,omitempty"`

	// Parents are the IDs of the parent folders
	Parents []string `json:"parents,omitempty"`

	// CreatedTime is when the file was created
	CreatedTime time.Time `json:"createdTime,omitzero"`

	// ModifiedTime is when the file was last modified
	ModifiedTime time.Time `json:"modifiedTime,omitzero"`

	// WebViewLink opens the file in the relevant Google editor or viewer
	WebViewLink string `json:"webViewLink,omitempty"`

	// WebContentLink downloads the file content (not available for folders)
	WebContentLink string `json:"webContentLink,omitempty"`

	// Owners are the owners of the file
	Owners []User `json:"owners,omitempty"`

	// Shared indicates whether the file is shared
	Shared bool `json:"shared"`

	// Trashed indicates whether the file is in the trash
	Trashed bool `json:"trashed"`
}

// IsFolder reports whether the entry is a folder.
func (f *FileInfo) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// FileList is one page of a listing. NextPageToken is copied verbatim from the
// API and is empty on the last page.
type FileList struct {
	Files         []*FileInfo `json:"files"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// User represents a Google Drive user (owner, permission holder, etc.)
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	PhotoLink    string `json:"photoLink,omitempty"`
}

// Permission represents an access grant on a file
type Permission struct {
	// ID is the unique identifier for the permission
	ID string `json:"id"`

	// Type is the type of grantee (user, group, domain, anyone)
	Type string `json:"type"`

	// Role is the role granted by this permission
	Role string `json:"role"`

	// EmailAddress is the grantee address for user and group permissions
	EmailAddress string `json:"emailAddress,omitempty"`

	// DisplayName is the display name of the user or group
	DisplayName string `json:"displayName,omitempty"`
}

// Download is the content of a file together with the metadata describing it.
type Download struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	// Exported is set when a Google Workspace document was converted to MimeType.
	Exported bool   `json:"exported,omitempty"`
	Content  []byte `json:"content"`
}

// StorageQuota mirrors the about.storageQuota resource. Limit is zero for
// unlimited storage.
type StorageQuota struct {
	Limit             int64 `json:"limit,omitempty"`
	Usage             int64 `json:"usage"`
	UsageInDrive      int64 `json:"usageInDrive"`
	UsageInDriveTrash int64 `json:"usageInDriveTrash"`
}

// ConnectionReport is the outcome of CheckConnection.
type ConnectionReport struct {
	ServiceAccount string             `json:"serviceAccount,omitempty"`
	Token          google.TokenStatus `json:"token"`
	APITest        string             `json:"apiTest"`
	Error          string             `json:"error,omitempty"`
	ErrorStatus    int                `json:"errorStatus,omitempty"`
	User           *User              `json:"user,omitempty"`
	StorageQuota   *StorageQuota      `json:"storageQuota,omitempty"`
}

// ListOptions contains options for listing files
type ListOptions struct {
	// PageSize is the maximum number of files to return (1..MaxPageSize)
	PageSize int

	// PageToken continues a previous listing
	PageToken string

	// Query is a Drive search query (e.g., "name contains 'report'")
	Query string

	// OrderBy is a comma-separated list of sort keys (e.g., "modifiedTime desc")
	OrderBy string

	// IncludeTrashed includes trashed files in the results
	IncludeTrashed bool
}

// UploadOptions contains options for uploading files
type UploadOptions struct {
	// ParentID is the folder to create the file in; empty means My Drive root
	ParentID string

	// MimeType of the content; DefaultUploadMimeType when empty
	MimeType string

	// Description of the file
	Description string
}

// ShareOptions contains options for sharing a file with a user
type ShareOptions struct {
	// EmailAddress of the user to share with
	EmailAddress string

	// Role to grant: reader, commenter, writer or owner
	Role string

	// SendNotificationEmail emails the grantee about the new permission
	SendNotificationEmail bool

	// EmailMessage is an optional message included in the notification
	EmailMessage string
}
