package main

import (
	"github.com/teemow/gdrive-mcp/cmd"
)

// version is stamped with -ldflags "-X main.version=..." by the Docker build
var version = "dev"

func main() {
	cmd.SetVersion(version)

	// Execute the root command
	cmd.Execute()
}
