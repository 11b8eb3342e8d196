package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gdrive-mcp/internal/config"
)

// newHealthcheckCmd probes /server-info of a running server. It exists for
// container images that ship without curl or wget.
func newHealthcheckCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless the local server answers /server-info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				if err := config.LoadEnvFile(config.EnvFilePath()); err != nil {
					return err
				}
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				url = "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port)) + "/server-info"
			}
			return probe(cmd.Context(), url, timeout)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "URL to probe (default: http://127.0.0.1:$PORT/server-info)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Probe timeout")

	return cmd
}

func probe(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server-info returned %s", resp.Status)
	}
	return nil
}
