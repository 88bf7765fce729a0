package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	URL           string // e.g. redis://localhost:6379/0
	Namespace     string // key prefix shared by gateway and workers
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RetryAttempts int
	RetryInterval time.Duration
}

// Client wraps a go-redis client with the connection lifecycle the services
// share: connect with retry, verify with a ping, expose the namespace.
type Client struct {
	rdb    *redis.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a Redis client and verifies connectivity before
// returning. Connection attempts are retried RetryAttempts times with
// RetryInterval between them.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	if config.URL == "" {
		config.URL = "redis://localhost:6379/0"
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}

	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.DialTimeout > 0 {
		opts.DialTimeout = config.DialTimeout
	}
	if config.ReadTimeout > 0 {
		opts.ReadTimeout = config.ReadTimeout
	}
	if config.WriteTimeout > 0 {
		opts.WriteTimeout = config.WriteTimeout
	}

	rdb := redis.NewClient(opts)

	var pingErr error
	for attempt := 1; attempt <= config.RetryAttempts; attempt++ {
		logger.Info("Connecting to Redis",
			slog.String("addr", opts.Addr),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", config.RetryAttempts),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = rdb.Ping(ctx).Err()
		cancel()

		if pingErr == nil {
			break
		}

		logger.Error("Failed to connect to Redis",
			slog.Any("error", pingErr),
			slog.Int("attempt", attempt),
		)

		if attempt < config.RetryAttempts {
			time.Sleep(config.RetryInterval)
		}
	}

	if pingErr != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", config.RetryAttempts, pingErr)
	}

	logger.Info("Successfully connected to Redis",
		slog.String("addr", opts.Addr),
		slog.String("namespace", config.Namespace),
	)

	return &Client{
		rdb:    rdb,
		config: config,
		logger: logger,
	}, nil
}

// Redis returns the underlying go-redis client.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Namespace returns the configured key prefix.
func (c *Client) Namespace() string {
	return c.config.Namespace
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")

	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection",
			slog.Any("error", err),
		)
		return err
	}

	c.logger.Info("Redis connection closed successfully")
	return nil
}
