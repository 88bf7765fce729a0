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

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Worker     WorkerConfig     `yaml:"worker"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	LLM        LLMConfig        `yaml:"llm"`
	Moderation ModerationConfig `yaml:"moderation"`
	Notify     NotifyConfig     `yaml:"notify"`
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

// RedisConfig holds queue store connection configuration
type RedisConfig struct {
	URL           string        `yaml:"url"`
	Namespace     string        `yaml:"namespace"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	PopTimeout      time.Duration `yaml:"pop_timeout"`
	IdleSleep       time.Duration `yaml:"idle_sleep"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GatewayConfig holds the message-handling knobs of the gateway service.
// TTLs are in seconds because they travel inside the job payload.
type GatewayConfig struct {
	BotName          string        `yaml:"bot_name"`
	MessageXP        int           `yaml:"message_xp"`
	ScanWaitTimeout  time.Duration `yaml:"scan_wait_timeout"`
	ScanResultTTL    int           `yaml:"scan_result_ttl"`
	ReplyWaitTimeout time.Duration `yaml:"reply_wait_timeout"`
	ReplyResultTTL   int           `yaml:"reply_result_ttl"`
}

// LLMConfig holds chat-completion API configuration.
// APIKey falls back to the LLM_API_KEY environment variable when empty.
type LLMConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	ChatModel      string        `yaml:"chat_model"`
	GuardModel     string        `yaml:"guard_model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ModerationConfig selects the spam detection strategy
type ModerationConfig struct {
	SpamStrategy string `yaml:"spam_strategy"`
}

// NotifyConfig holds moderation webhook configuration
type NotifyConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Load reads and parses the configuration file
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

	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}

	return &config, nil
}

// applyDefaults fills in values that are safe to assume when omitted.
// Required fields stay empty and are caught by validation.
func (c *Config) applyDefaults() {
	if c.Redis.Namespace == "" {
		c.Redis.Namespace = "guildest"
	}
	if c.Redis.RetryAttempts <= 0 {
		c.Redis.RetryAttempts = 3
	}
	if c.Redis.RetryInterval <= 0 {
		c.Redis.RetryInterval = 2 * time.Second
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 4
	}
	if c.Worker.PopTimeout <= 0 {
		c.Worker.PopTimeout = 5 * time.Second
	}
	if c.Worker.IdleSleep <= 0 {
		c.Worker.IdleSleep = 100 * time.Millisecond
	}
	if c.Worker.ShutdownTimeout <= 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}
	if c.Gateway.MessageXP <= 0 {
		c.Gateway.MessageXP = 5
	}
	if c.Gateway.ScanWaitTimeout <= 0 {
		c.Gateway.ScanWaitTimeout = 30 * time.Second
	}
	if c.Gateway.ScanResultTTL <= 0 {
		c.Gateway.ScanResultTTL = 90
	}
	if c.Gateway.ReplyWaitTimeout <= 0 {
		c.Gateway.ReplyWaitTimeout = 75 * time.Second
	}
	if c.Gateway.ReplyResultTTL <= 0 {
		c.Gateway.ReplyResultTTL = 180
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = "llama-3.1-8b-instant"
	}
	if c.LLM.GuardModel == "" {
		c.LLM.GuardModel = "meta-llama/llama-guard-4-12b"
	}
	if c.LLM.RequestTimeout <= 0 {
		c.LLM.RequestTimeout = 60 * time.Second
	}
	if c.Moderation.SpamStrategy == "" {
		c.Moderation.SpamStrategy = "heuristic"
	}
	if c.Notify.RequestTimeout <= 0 {
		c.Notify.RequestTimeout = 10 * time.Second
	}
}

// Validate checks if the configuration is valid
func (c *Config) ValidateGatewayConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}

	switch c.Moderation.SpamStrategy {
	case "heuristic", "strict":
	default:
		return fmt.Errorf("unknown spam strategy: %q", c.Moderation.SpamStrategy)
	}

	return nil
}

// Make another validation function for worker config
func (c *Config) ValidateWorkerConfig() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}

	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.PopTimeout <= 0 {
		return fmt.Errorf("worker pop_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}
