package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ServiceName    = "sales-service"
	ServiceVersion = "0.1.0"
)

const (
	DefaultReportTopic     = "hob-report-generation"
	DefaultDeadLetterTopic = "hob-report-generation-dlq"
	DefaultGroupID         = "sales-report-worker"
	BatchTimeout           = 10 * time.Millisecond
	BatchSize              = 100
)

const (
	LogsPath       = "/otlp/v1/logs"    // Grafana Cloud OTLP path
	TracesPath     = "/otlp/v1/traces"  // Grafana Cloud OTLP path
	MetricsPath    = "/otlp/v1/metrics" // Grafana Cloud OTLP path
	ExportTimeout  = 30 * time.Second
	MaxQueueSize   = 2048
	MetricInterval = 15 * time.Second
)

// Supported values for DATABASE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported values for REPORT_SINK.
const (
	SinkFile = "file"
	SinkS3   = "s3"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int

	DatabaseDriver string
	DatabaseURL    string

	KafkaBroker     string
	ReportTopic     string
	DeadLetterTopic string
	GroupID         string

	Report ReportConfig
	Worker WorkerConfig

	OtelEndpoint   string
	OtelAuthHeader string
}

// ReportConfig controls where generated CSV files end up.
type ReportConfig struct {
	Sink           string
	OutputDir      string
	FilenameFormat string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3Prefix       string
}

// WorkerConfig controls the report consumer.
// RetryLimit counts retries after the first attempt.
type WorkerConfig struct {
	IdleTimeout      time.Duration
	RetryLimit       int
	RetryMinInterval time.Duration
	RetryMaxInterval time.Duration
	Prefetch         int
}

// TelemetryEnabled reports whether OTLP exporters should be created.
func (c *Config) TelemetryEnabled() bool {
	return c.OtelEndpoint != ""
}

// Keys are the lower-case names of the environment variables that set them.
const (
	KeyConfigFile = "config"

	KeyHTTPAddr        = "http_addr"
	KeyShutdownTimeout = "http_shutdown_timeout"
	KeyRateLimitRPS    = "http_rate_limit_rps"
	KeyRateLimitBurst  = "http_rate_limit_burst"

	KeyDatabaseDriver = "database_driver"
	KeyDatabaseURL    = "database_url"

	KeyKafkaBroker     = "kafka_broker"
	KeyReportTopic     = "report_topic"
	KeyDeadLetterTopic = "report_dlq_topic"
	KeyGroupID         = "report_group_id"
)

// settings mirrors the flat key space read by viper.
type settings struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"http_shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"http_rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"http_rate_limit_burst"`

	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseURL    string `mapstructure:"database_url"`

	KafkaBroker     string `mapstructure:"kafka_broker"`
	ReportTopic     string `mapstructure:"report_topic"`
	DeadLetterTopic string `mapstructure:"report_dlq_topic"`
	GroupID         string `mapstructure:"report_group_id"`

	ReportSink           string `mapstructure:"report_sink"`
	ReportOutputDir      string `mapstructure:"report_output_dir"`
	ReportFilenameFormat string `mapstructure:"report_filename_format"`
	ReportS3Bucket       string `mapstructure:"report_s3_bucket"`
	ReportS3Region       string `mapstructure:"report_s3_region"`
	ReportS3Endpoint     string `mapstructure:"report_s3_endpoint"`
	ReportS3Prefix       string `mapstructure:"report_s3_prefix"`

	WorkerIdleTimeout      time.Duration `mapstructure:"worker_idle_timeout"`
	WorkerRetryLimit       int           `mapstructure:"worker_retry_limit"`
	WorkerRetryMinInterval time.Duration `mapstructure:"worker_retry_min_interval"`
	WorkerRetryMaxInterval time.Duration `mapstructure:"worker_retry_max_interval"`
	WorkerPrefetch         int           `mapstructure:"worker_prefetch"`

	OtelEndpoint   string `mapstructure:"otel_endpoint"`
	OtelAuthHeader string `mapstructure:"otel_auth_header"`
}

// New returns a viper instance with every key defaulted and bound to its
// environment variable. Callers may bind flags on top before LoadConfig.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyConfigFile, "")
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyShutdownTimeout, 10*time.Second)
	v.SetDefault(KeyRateLimitRPS, 50.0)
	v.SetDefault(KeyRateLimitBurst, 100)

	v.SetDefault(KeyDatabaseDriver, DriverSQLite)
	v.SetDefault(KeyDatabaseURL, "file:sales.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")

	v.SetDefault(KeyKafkaBroker, "localhost:9092")
	v.SetDefault(KeyReportTopic, DefaultReportTopic)
	v.SetDefault(KeyDeadLetterTopic, DefaultDeadLetterTopic)
	v.SetDefault(KeyGroupID, DefaultGroupID)

	v.SetDefault("report_sink", SinkFile)
	v.SetDefault("report_output_dir", "/reports")
	v.SetDefault("report_filename_format", "20060102_150405")
	v.SetDefault("report_s3_bucket", "")
	v.SetDefault("report_s3_region", "us-east-1")
	v.SetDefault("report_s3_endpoint", "")
	v.SetDefault("report_s3_prefix", "reports/")

	v.SetDefault("worker_idle_timeout", 30*time.Second)
	v.SetDefault("worker_retry_limit", 3)
	v.SetDefault("worker_retry_min_interval", time.Second)
	v.SetDefault("worker_retry_max_interval", 30*time.Second)
	v.SetDefault("worker_prefetch", 1)

	v.SetDefault("otel_endpoint", "")
	v.SetDefault("otel_auth_header", "")

	v.AutomaticEnv()
	_ = v.BindEnv(KeyConfigFile, "SALESSERVICE_CONFIG")
	return v
}

// LoadConfig reads the optional config file named by the "config" key and
// decodes every setting, with environment and bound flags taking precedence.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config := &Config{
		HTTPAddr:        strings.TrimSpace(s.HTTPAddr),
		ShutdownTimeout: s.ShutdownTimeout,
		RateLimitRPS:    s.RateLimitRPS,
		RateLimitBurst:  s.RateLimitBurst,

		DatabaseDriver: strings.ToLower(strings.TrimSpace(s.DatabaseDriver)),
		DatabaseURL:    strings.TrimSpace(s.DatabaseURL),

		KafkaBroker:     s.KafkaBroker,
		ReportTopic:     s.ReportTopic,
		DeadLetterTopic: s.DeadLetterTopic,
		GroupID:         s.GroupID,

		Report: ReportConfig{
			Sink:           strings.ToLower(strings.TrimSpace(s.ReportSink)),
			OutputDir:      s.ReportOutputDir,
			FilenameFormat: s.ReportFilenameFormat,
			S3Bucket:       s.ReportS3Bucket,
			S3Region:       s.ReportS3Region,
			S3Endpoint:     s.ReportS3Endpoint,
			S3Prefix:       s.ReportS3Prefix,
		},

		Worker: WorkerConfig{
			IdleTimeout:      s.WorkerIdleTimeout,
			RetryLimit:       s.WorkerRetryLimit,
			RetryMinInterval: s.WorkerRetryMinInterval,
			RetryMaxInterval: s.WorkerRetryMaxInterval,
			Prefetch:         s.WorkerPrefetch,
		},

		OtelEndpoint:   s.OtelEndpoint,
		OtelAuthHeader: s.OtelAuthHeader,
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	switch c.Report.Sink {
	case SinkFile:
		if c.Report.OutputDir == "" {
			return fmt.Errorf("REPORT_OUTPUT_DIR is required when REPORT_SINK=%s", SinkFile)
		}
	case SinkS3:
		if c.Report.S3Bucket == "" {
			return fmt.Errorf("REPORT_S3_BUCKET is required when REPORT_SINK=%s", SinkS3)
		}
	default:
		return fmt.Errorf("REPORT_SINK must be %q or %q, got %q", SinkFile, SinkS3, c.Report.Sink)
	}

	if c.Worker.IdleTimeout <= 0 {
		return fmt.Errorf("WORKER_IDLE_TIMEOUT must be positive")
	}
	if c.Worker.RetryLimit < 0 {
		return fmt.Errorf("WORKER_RETRY_LIMIT must not be negative")
	}
	if c.Worker.RetryMinInterval > c.Worker.RetryMaxInterval {
		return fmt.Errorf("WORKER_RETRY_MIN_INTERVAL must not exceed WORKER_RETRY_MAX_INTERVAL")
	}
	if c.Worker.Prefetch < 1 {
		return fmt.Errorf("WORKER_PREFETCH must be at least 1")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("HTTP_RATE_LIMIT_RPS and HTTP_RATE_LIMIT_BURST must be positive")
	}
	if c.OtelEndpoint != "" && c.OtelAuthHeader == "" {
		return fmt.Errorf("OTEL_AUTH_HEADER environment variable is required when OTEL_ENDPOINT is set")
	}

	return nil
}
