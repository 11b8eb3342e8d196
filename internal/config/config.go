package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/teemow/gdrive-mcp/internal/errs"
)

// Transport names accepted by the serve command.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
	TransportStdio          = "stdio"
)

// DefaultScope grants full Drive access, which the Sheets API also accepts.
const DefaultScope = "https://www.googleapis.com/auth/drive"

// DefaultMaxDownloadBytes caps download_file payloads at 10 MiB.
const DefaultMaxDownloadBytes = 10 * 1024 * 1024

// Config holds the process configuration read from the environment.
// Command-line flags are applied on top of it by the serve command.
type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8055"`

	ServiceAccountFile string   `envconfig:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	Scopes             []string `envconfig:"GOOGLE_DRIVE_SCOPES" default:"https://www.googleapis.com/auth/drive"`
	VerifyCredentials  bool     `envconfig:"GOOGLE_VERIFY_CREDENTIALS" default:"true"`
	DriveEndpoint      string   `envconfig:"GOOGLE_DRIVE_ENDPOINT"`
	SheetsEndpoint     string   `envconfig:"GOOGLE_SHEETS_ENDPOINT"`

	MaxDownloadBytes int64  `envconfig:"MAX_DOWNLOAD_BYTES" default:"10485760"`
	Transport        string `envconfig:"MCP_TRANSPORT" default:"sse"`
	ReadOnly         bool   `envconfig:"READ_ONLY" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads the configuration from the environment. Malformed values are
// reported as ConfigurationError.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, errs.Configuration(settingFromEnvconfig(err), "failed to parse environment variables", err)
	}
	c.Scopes = normalizeScopes(c.Scopes)
	return c, nil
}

// Addr returns the host:port the HTTP transport listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the settings the serve command depends on. It does not touch
// the credentials file; that is the job of the credential loader.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSSE, TransportStreamableHTTP, TransportStdio:
	default:
		return errs.Configuration("MCP_TRANSPORT", fmt.Sprintf("unsupported transport %q (want sse, streamable-http or stdio)", c.Transport), nil)
	}

	if c.Transport != TransportStdio && (c.Port < 1 || c.Port > 65535) {
		return errs.Configuration("PORT", fmt.Sprintf("port %d out of range", c.Port), nil)
	}

	if strings.TrimSpace(c.ServiceAccountFile) == "" {
		return errs.Configuration("GOOGLE_SERVICE_ACCOUNT_FILE", "path to the service-account key is not set", nil)
	}

	if len(c.Scopes) == 0 {
		return errs.Configuration("GOOGLE_DRIVE_SCOPES", "at least one scope is required", nil)
	}

	if c.MaxDownloadBytes <= 0 {
		return errs.Configuration("MAX_DOWNLOAD_BYTES", "must be positive", nil)
	}

	return nil
}

func normalizeScopes(scopes []string) []string {
	result := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func settingFromEnvconfig(err error) string {
	if perr, ok := err.(*envconfig.ParseError); ok {
		return perr.KeyName
	}
	return "environment"
}
