package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/drive"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/sheets"
	"github.com/teemow/gdrive-mcp/internal/tools/drive_tools"
	"github.com/teemow/gdrive-mcp/internal/tools/sheets_tools"
)

// toolCategory is a documented group of tools.
type toolCategory struct {
	Name     string
	Register func(*mcpserver.MCPServer, *server.ServerContext, bool) error
}

var toolCategories = []toolCategory{
	{Name: "Google Drive Tools", Register: drive_tools.RegisterDriveTools},
	{Name: "Google Sheets Tools", Register: sheets_tools.RegisterSheetsTools},
}

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.Context(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(ctx context.Context, outputFile string) error {
	groups, err := collectTools(ctx)
	if err != nil {
		return err
	}

	markdown := generateToolsMarkdown(groups)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// collectTools registers every category, write tools included, against
// unauthenticated clients. Nothing is sent to Google.
func collectTools(ctx context.Context) (map[string][]mcp.Tool, error) {
	driveClient, err := drive.NewClient(ctx, drive.Config{}, option.WithoutAuthentication())
	if err != nil {
		return nil, err
	}
	sheetsClient, err := sheets.NewClient(ctx, option.WithoutAuthentication())
	if err != nil {
		return nil, err
	}

	serverContext := server.NewServerContext(ctx, server.Options{Drive: driveClient, Sheets: sheetsClient})
	defer func() {
		_ = serverContext.Shutdown()
	}()

	groups := make(map[string][]mcp.Tool, len(toolCategories))
	for _, category := range toolCategories {
		mcpSrv := mcpserver.NewMCPServer(serverName, version, mcpserver.WithToolCapabilities(true))
		if err := category.Register(mcpSrv, serverContext, false); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", category.Name, err)
		}
		for _, serverTool := range mcpSrv.ListTools() {
			groups[category.Name] = append(groups[category.Name], serverTool.Tool)
		}
	}
	return groups, nil
}

func generateToolsMarkdown(toolsByCategory map[string][]mcp.Tool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running gdrive-mcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Identity and Read-only Mode\n\n")
	sb.WriteString("Every tool acts as the configured Google service account:\n\n")
	sb.WriteString("- **Visibility:** only files owned by or shared with the service account are visible\n")
	sb.WriteString("- **Read-only mode:** with `READ_ONLY=true` only tools marked read-only are registered\n")
	sb.WriteString("- **Errors:** failed calls return `{\"error\": {\"kind\", \"message\", \"status\", \"invocationId\"}}`\n\n")

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := slices.Clone(toolsByCategory[category])
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	// Tool name
	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if tool.Annotations.ReadOnlyHint != nil && *tool.Annotations.ReadOnlyHint {
		sb.WriteString("*Read-only*\n\n")
	}

	// Input schema
	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
			if !ok {
				continue
			}

			requiredStr := "optional"
			if slices.Contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr))

			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
