package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the gdrive-mcp application
var rootCmd = &cobra.Command{
	Use:   "gdrive-mcp",
	Short: "MCP server for Google Drive backed by a service account",
	Long: `gdrive-mcp exposes Google Drive and Google Sheets operations as
Model Context Protocol tools. It authenticates as a single Google service
account and serves MCP clients over SSE, streamable HTTP or stdio.

Configuration is read from the environment (HOST, PORT,
GOOGLE_SERVICE_ACCOUNT_FILE, ...) and can be overridden with flags.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gdrive-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newHealthcheckCmd())
}
