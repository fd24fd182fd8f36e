package config

import (
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

// The services run as pods with their settings injected as environment
// variables, so config is env-only with local defaults.

type Config struct {
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBMaxConns int    `mapstructure:"DB_MAX_CONNS"`

	ServerPort string `mapstructure:"SERVER_PORT"`
	IsLocalDev bool   `mapstructure:"IS_LOCAL_DEV"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	AWSRegion               string `mapstructure:"AWS_REGION"`
	AWSEndpoint             string `mapstructure:"AWS_ENDPOINT"`
	NotificationSQSQueueURL string `mapstructure:"NOTIFICATION_SQS_QUEUE_URL"`
	TimesheetSQSQueueURL    string `mapstructure:"TIMESHEET_SQS_QUEUE_URL"`
	SESSender               string `mapstructure:"SES_SENDER"`

	HRAPIURL string `mapstructure:"HR_API_URL"`

	TraceExporter string `mapstructure:"TRACE_EXPORTER"`
	OTLPEndpoint  string `mapstructure:"OTLP_ENDPOINT"`

	WorkerConcurrency int `mapstructure:"WORKER_CONCURRENCY"`
}

// LoadConfig reads configuration from environment variables on top of defaults.
func LoadConfig() (Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (config Config, err error) {
	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "crm_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("IS_LOCAL_DEV", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	v.SetDefault("NOTIFICATION_SQS_QUEUE_URL", "http://localstack:4566/000000000000/notification-queue")
	v.SetDefault("TIMESHEET_SQS_QUEUE_URL", "http://localstack:4566/000000000000/timesheet-queue")
	v.SetDefault("SES_SENDER", "no-reply@crm-backoffice.com")
	v.SetDefault("HR_API_URL", "http://localhost:8081/")
	v.SetDefault("TRACE_EXPORTER", "otlp")
	v.SetDefault("OTLP_ENDPOINT", "jaeger:4317")
	v.SetDefault("WORKER_CONCURRENCY", 10)

	v.AutomaticEnv()

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: unmarshal: %w", err)
	}

	switch config.TraceExporter {
	case "otlp", "stdout", "none":
	default:
		return config, fmt.Errorf("config: unsupported TRACE_EXPORTER %q", config.TraceExporter)
	}
	return config, nil
}

// DSN builds the Postgres connection URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
