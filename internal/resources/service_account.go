package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/server"
)

// ServiceAccountURI identifies the service account resource.
const ServiceAccountURI = "gdrive://service-account"

// ServiceAccountInfo is the body of the service account resource.
type ServiceAccountInfo struct {
	Email         string   `json:"email"`
	ProjectID     string   `json:"projectId,omitempty"`
	Scopes        []string `json:"scopes"`
	DriveEndpoint string   `json:"driveEndpoint"`
	ReadOnly      bool     `json:"readOnly"`
	Description   string   `json:"description"`
}

// RegisterResources registers the server's resources.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.ServiceAccount() == nil {
		return fmt.Errorf("service account is not loaded")
	}

	serviceAccount := mcp.NewResource(
		ServiceAccountURI,
		"Service Account",
		mcp.WithResourceDescription("The Google service account this server acts as. Share folders with its email to make them visible."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(serviceAccount, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleServiceAccount(ctx, request, sc)
	})
	return nil
}

func handleServiceAccount(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	sa := sc.ServiceAccount()

	info := ServiceAccountInfo{
		Email:         sa.Email,
		ProjectID:     sa.ProjectID,
		Scopes:        sa.Scopes,
		DriveEndpoint: sc.DriveEndpoint(),
		ReadOnly:      sc.ReadOnly(),
		Description:   "Files created through this server are owned by this account",
	}

	jsonData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal service account info: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
