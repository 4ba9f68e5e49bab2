package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration for both the API
// and the worker service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Queue    QueueConfig    `yaml:"queue"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Exports  ExportsConfig  `yaml:"exports"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection, exchange and lane configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Import     LaneConfig       `yaml:"import"`
	Export     LaneConfig       `yaml:"export"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LaneConfig holds the queue and routing key of one job lane
type LaneConfig struct {
	Queue      string `yaml:"queue"`
	RoutingKey string `yaml:"routing_key"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// QueueConfig holds per-lane attempt policies
type QueueConfig struct {
	Import PolicyConfig `yaml:"import"`
	Export PolicyConfig `yaml:"export"`
}

// PolicyConfig holds one lane's retry policy
type PolicyConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// DedupeConfig holds duplicate-detection tuning
type DedupeConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// ExportsConfig holds the export artifact sink settings
type ExportsConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency      int           `yaml:"concurrency"`
	PrefetchCount    int           `yaml:"prefetch_count"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	SweepBatchSize   int           `yaml:"sweep_batch_size"`
	StaleActiveAfter time.Duration `yaml:"stale_active_after"`
	MetricsPort      int           `yaml:"metrics_port"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// Load reads and parses the configuration file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills in the documented lane policies and dedupe threshold
// when the file leaves them unset.
func (c *Config) applyDefaults() {
	if c.Queue.Import.MaxAttempts == 0 {
		c.Queue.Import.MaxAttempts = 3
	}
	if c.Queue.Import.BackoffBase == 0 {
		c.Queue.Import.BackoffBase = 5 * time.Second
	}
	if c.Queue.Export.MaxAttempts == 0 {
		c.Queue.Export.MaxAttempts = 2
	}
	if c.Queue.Export.BackoffBase == 0 {
		c.Queue.Export.BackoffBase = 3 * time.Second
	}
	if c.Dedupe.FuzzyThreshold == 0 {
		c.Dedupe.FuzzyThreshold = 0.85
	}
	if c.Worker.SweepBatchSize == 0 {
		c.Worker.SweepBatchSize = 100
	}
	if c.Worker.StaleActiveAfter == 0 {
		c.Worker.StaleActiveAfter = 15 * time.Minute
	}
}

func (c *Config) validateShared() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Import.Queue == "" || c.RabbitMQ.Export.Queue == "" {
		return fmt.Errorf("rabbitmq lane queues are required")
	}

	if c.Dedupe.FuzzyThreshold <= 0 || c.Dedupe.FuzzyThreshold > 1 {
		return fmt.Errorf("invalid fuzzy threshold: %g (must be in (0, 1])", c.Dedupe.FuzzyThreshold)
	}

	return nil
}

// ValidateAPIConfig checks the fields the API service needs.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateShared()
}

// ValidateWorkerConfig checks the fields the worker service needs.
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.PrefetchCount <= 0 {
		return fmt.Errorf("worker prefetch_count must be greater than 0")
	}

	if c.Worker.SweepInterval <= 0 {
		return fmt.Errorf("worker sweep_interval must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Exports.Dir == "" {
		return fmt.Errorf("exports dir is required")
	}

	return c.validateShared()
}
