package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/teemow/gdrive-mcp/internal/config"
	"github.com/teemow/gdrive-mcp/internal/drive"
	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/google"
	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/logging"
	"github.com/teemow/gdrive-mcp/internal/resources"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/sheets"
	"github.com/teemow/gdrive-mcp/internal/tools/drive_tools"
	"github.com/teemow/gdrive-mcp/internal/tools/sheets_tools"
)

const serverName = "gdrive-mcp"

// defaultDriveEndpoint is reported when GOOGLE_DRIVE_ENDPOINT is unset.
const defaultDriveEndpoint = "https://www.googleapis.com/drive/v3/"

func newServeCmd() *cobra.Command {
	var (
		transport      string
		host           string
		port           int
		keyFile        string
		scopes         string
		readOnly       bool
		debugMode      bool
		logFormat      string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing Google Drive and
Google Sheets tools backed by a service account.

Supports multiple transport types:
  - sse: Server-Sent Events on /sse with messages posted to /message (default)
  - streamable-http: Streamable HTTP on /mcp
  - stdio: Standard input/output

The HTTP transports also serve GET /server-info, /healthz and /readyz.

Environment:
  Variables are read from the process environment and from the file named
  by ENV_FILE (default .env); the process environment wins.

Credentials:
  GOOGLE_SERVICE_ACCOUNT_FILE must point at a service-account JSON key. The
  key is loaded and exchanged for a token before the port is bound; a missing
  or rejected key aborts startup.

Read-only Mode:
  --read-only (or READ_ONLY=true) hides every tool that modifies Drive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(config.EnvFilePath()); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Flags override the environment only when given explicitly.
			flags := cmd.Flags()
			if flags.Changed("transport") {
				cfg.Transport = transport
			}
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("service-account-file") {
				cfg.ServiceAccountFile = keyFile
			}
			if flags.Changed("scopes") {
				cfg.Scopes = parseCommaSeparatedList(scopes)
			}
			if flags.Changed("read-only") {
				cfg.ReadOnly = readOnly
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if flags.Changed("metrics") {
				cfg.MetricsEnabled = metricsEnabled
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if debugMode {
				cfg.LogLevel = "debug"
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&transport, "transport", config.TransportSSE, "Transport type: sse, streamable-http or stdio (env: MCP_TRANSPORT)")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Interface to listen on (env: HOST)")
	cmd.Flags().IntVar(&port, "port", 8055, "Port to listen on (env: PORT)")
	cmd.Flags().StringVar(&keyFile, "service-account-file", "", "Path to the service-account JSON key (env: GOOGLE_SERVICE_ACCOUNT_FILE)")
	cmd.Flags().StringVar(&scopes, "scopes", "", "Comma-separated OAuth scopes (env: GOOGLE_DRIVE_SCOPES)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Only register tools that do not modify Drive (env: READ_ONLY)")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json (env: LOG_FORMAT)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "Serve Prometheus metrics on a separate port (env: METRICS_ENABLED)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address (env: METRICS_ADDR)")

	return cmd
}

// runServe loads credentials, registers the tools and serves until ctx is
// done. Every configuration problem is reported before a port is bound.
func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return errs.Configuration("LOG_LEVEL", "invalid logging settings", err)
	}
	slog.SetDefault(logger)

	sa, err := google.LoadServiceAccount(ctx, cfg.ServiceAccountFile, cfg.Scopes)
	if err != nil {
		return err
	}
	if cfg.VerifyCredentials {
		if err := sa.Verify(ctx); err != nil {
			return err
		}
		logger.Info("service account verified",
			logging.UserHash(sa.Email),
			logging.Domain(sa.Email),
			"scopes", sa.Scopes)
		if tok, err := sa.TokenSource().Token(); err == nil {
			logger.Debug("access token cached",
				"token", logging.SanitizeToken(tok.AccessToken),
				"expiry", tok.Expiry)
		}
	}

	instrConfig, err := instrumentation.ConfigFromEnv()
	if err != nil {
		return errs.Configuration("instrumentation", "invalid instrumentation settings", err)
	}
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	driveClient, sheetsClient, err := newGoogleClients(ctx, cfg, sa)
	if err != nil {
		return err
	}

	serverContext := server.NewServerContext(ctx, server.Options{
		Drive:          driveClient,
		Sheets:         sheetsClient,
		ServiceAccount: sa,
		DriveEndpoint:  reportedDriveEndpoint(cfg.DriveEndpoint),
		ReadOnly:       cfg.ReadOnly,
		Logger:         logger,
	})
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig))
	}

	mcpSrv := newMCPServer(serverContext)
	if err := registerAllTools(mcpSrv, serverContext, cfg.ReadOnly); err != nil {
		return err
	}

	if cfg.ReadOnly {
		logger.Info("starting in read-only mode, write tools are not registered")
	}

	if cfg.Transport == config.TransportStdio {
		return runStdioServer(ctx, mcpSrv, logger)
	}
	return runHTTPServer(ctx, cfg, mcpSrv, serverContext, provider, logger)
}

// newGoogleClients builds the Drive and Sheets clients authenticated as sa.
func newGoogleClients(ctx context.Context, cfg *config.Config, sa *google.ServiceAccount) (*drive.Client, *sheets.Client, error) {
	driveOpts := sa.ClientOptions()
	if cfg.DriveEndpoint != "" {
		driveOpts = append(driveOpts, option.WithEndpoint(cfg.DriveEndpoint))
	}
	driveClient, err := drive.NewClient(ctx, drive.Config{
		MaxDownloadBytes: cfg.MaxDownloadBytes,
		ServiceAccount:   sa.Email,
		Tokens:           sa,
	}, driveOpts...)
	if err != nil {
		return nil, nil, err
	}

	sheetsOpts := sa.ClientOptions()
	if cfg.SheetsEndpoint != "" {
		sheetsOpts = append(sheetsOpts, option.WithEndpoint(cfg.SheetsEndpoint))
	}
	sheetsClient, err := sheets.NewClient(ctx, sheetsOpts...)
	if err != nil {
		return nil, nil, err
	}

	return driveClient, sheetsClient, nil
}

func newMCPServer(sc *server.ServerContext) *mcpserver.MCPServer {
	hooks := &mcpserver.Hooks{}
	sc.Sessions().AttachHooks(hooks)

	return mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithHooks(hooks),
		mcpserver.WithRecovery(),
	)
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdio := mcpserver.NewStdioServer(mcpSrv)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, cfg *config.Config, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, logger *slog.Logger) error {
	health := server.NewHealthChecker(sc, server.InfoConfig{
		Name:      serverName,
		Version:   version,
		Transport: cfg.Transport,
		Tools:     func() []string { return toolNames(mcpSrv) },
	})

	httpSrv, err := server.NewHTTPServer(server.HTTPConfig{
		Addr:      cfg.Addr(),
		Transport: cfg.Transport,
		MCP:       mcpSrv,
		Health:    health,
		Metrics:   sc.Metrics(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var metricsSrv *server.MetricsServer
	if cfg.MetricsEnabled && provider.PrometheusHandler() != nil {
		metricsSrv, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}

	logger.Info("starting MCP server",
		"transport", cfg.Transport,
		"addr", ln.Addr().String(),
		"tools", len(mcpSrv.ListTools()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpSrv.Serve(ln)
	})
	if metricsSrv != nil {
		g.Go(metricsSrv.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping servers")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
		defer cancel()

		var shutdownErrs []error
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("error shutting down HTTP server: %w", err))
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				shutdownErrs = append(shutdownErrs, fmt.Errorf("error shutting down metrics server: %w", err))
			}
		}
		return errors.Join(shutdownErrs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("servers gracefully stopped")
	return nil
}

// registerTools registers the Drive and Sheets tool groups.
func registerTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Drive",
			register: func() error {
				return drive_tools.RegisterDriveTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Sheets",
			register: func() error {
				return sheets_tools.RegisterSheetsTools(mcpSrv, ctx, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	if err := registerTools(mcpSrv, ctx, readOnly); err != nil {
		return err
	}
	if err := resources.RegisterResources(mcpSrv, ctx); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}
	return nil
}

func toolNames(mcpSrv *mcpserver.MCPServer) []string {
	tools := mcpSrv.ListTools()
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// reportedDriveEndpoint is the Drive endpoint shown to clients.
func reportedDriveEndpoint(override string) string {
	if override == "" {
		return defaultDriveEndpoint
	}
	return override
}
