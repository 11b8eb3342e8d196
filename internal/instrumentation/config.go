package instrumentation

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Exporter names accepted by METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Status values used as metric and span labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Google service labels.
const (
	ServiceDrive  = "drive"
	ServiceSheets = "sheets"
)

// Operation labels for Google API calls. Keeping the set closed keeps the
// google_api_operations_total series bounded.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationCreate   = "create"
	OperationUpload   = "upload"
	OperationDownload = "download"
	OperationExport   = "export"
	OperationDelete   = "delete"
	OperationShare    = "share"
	OperationAbout    = "about"
	OperationRead     = "read"
	OperationUpdate   = "update"
	OperationAppend   = "append"
	OperationBatch    = "batch_update"
)

// Transfer directions for drive_transfer_bytes.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// DefaultMetricInterval is the push interval for periodic metric readers.
const DefaultMetricInterval = 30 * time.Second

// Config holds instrumentation settings.
type Config struct {
	// ServiceName is reported as service.name on every metric and span.
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"gdrive-mcp"`

	// ServiceVersion is set by the caller from the build version.
	ServiceVersion string `ignored:"true"`

	// ServiceInstanceID defaults to the hostname when empty.
	ServiceInstanceID string `envconfig:"OTEL_SERVICE_INSTANCE_ID"`

	Enabled bool `envconfig:"INSTRUMENTATION_ENABLED" default:"true"`

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string `envconfig:"METRICS_EXPORTER" default:"prometheus"`

	// TracingExporter is one of none, otlp or stdout.
	TracingExporter string `envconfig:"TRACING_EXPORTER" default:"none"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`

	// TraceSamplingRate is the parent-based ratio in [0, 1].
	TraceSamplingRate float64 `envconfig:"OTEL_TRACES_SAMPLER_ARG" default:"0.1"`

	MetricInterval time.Duration `envconfig:"OTEL_METRIC_EXPORT_INTERVAL" default:"30s"`

	// DetailedLabels adds high-cardinality labels such as the HTTP path.
	DetailedLabels bool `envconfig:"METRICS_DETAILED_LABELS" default:"false"`

	// AuditLogging emits one audit record per tool invocation.
	AuditLogging bool `envconfig:"AUDIT_LOGGING_ENABLED" default:"true"`

	// AuditIncludePII logs share recipients in clear instead of hashed.
	AuditIncludePII bool `envconfig:"AUDIT_LOGGING_INCLUDE_PII" default:"false"`
}

// DefaultConfig returns the configuration with every default applied and
// the environment ignored.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "gdrive-mcp",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		MetricInterval:    DefaultMetricInterval,
		AuditLogging:      true,
	}
}

// ConfigFromEnv reads the instrumentation settings from the environment.
func ConfigFromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("instrumentation config: %w", err)
	}
	return c, c.Validate()
}

// Validate checks exporter names, OTLP endpoint requirements and the
// sampling rate.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.MetricsExporter {
	case ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("unsupported metrics exporter %q", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case ExporterNone, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.TracingExporter)
	}
	if (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required for the otlp exporter")
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate %v outside [0, 1]", c.TraceSamplingRate)
	}
	return nil
}
