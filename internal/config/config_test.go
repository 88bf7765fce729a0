package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "guildest_db", cfg.Database.Database)
				assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
				assert.Equal(t, "guildest", cfg.Redis.Namespace)
				assert.Equal(t, "gateway-service", cfg.App.Name)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/minimal.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "guildest", cfg.Redis.Namespace)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Worker.PopTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Worker.IdleSleep)
	assert.Equal(t, 30*time.Second, cfg.Gateway.ScanWaitTimeout)
	assert.Equal(t, 90, cfg.Gateway.ScanResultTTL)
	assert.Equal(t, 75*time.Second, cfg.Gateway.ReplyWaitTimeout)
	assert.Equal(t, 180, cfg.Gateway.ReplyResultTTL)
	assert.Equal(t, "heuristic", cfg.Moderation.SpamStrategy)
}

func TestConfig_ValidateGatewayConfig(t *testing.T) {
	validConfig := func() *Config {
		cfg := &Config{
			Server: ServerConfig{Port: 8080},
			Database: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "guildest_db",
			},
			Redis: RedisConfig{
				URL: "redis://localhost:6379/0",
			},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty redis url",
			mutate:    func(c *Config) { c.Redis.URL = "" },
			wantErr:   true,
			errString: "redis url is required",
		},
		{
			name:      "unknown spam strategy",
			mutate:    func(c *Config) { c.Moderation.SpamStrategy = "vibes" },
			wantErr:   true,
			errString: "unknown spam strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateGatewayConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	validConfig := func() *Config {
		cfg := &Config{
			Redis: RedisConfig{
				URL: "redis://localhost:6379/0",
			},
			LLM: LLMConfig{
				BaseURL: "https://api.groq.com/openai/v1",
			},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "empty redis url",
			mutate:    func(c *Config) { c.Redis.URL = "" },
			wantErr:   true,
			errString: "redis url is required",
		},
		{
			name:      "empty llm base url",
			mutate:    func(c *Config) { c.LLM.BaseURL = "" },
			wantErr:   true,
			errString: "llm base_url is required",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = -1 },
			wantErr:   true,
			errString: "worker concurrency must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateGatewayConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateGatewayConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})
}

func TestPortConstants(t *testing.T) {
	t.Run("port constants are correct", func(t *testing.T) {
		assert.Equal(t, 1, MinPort)
		assert.Equal(t, 65535, MaxPort)
	})

	t.Run("invalid port range", func(t *testing.T) {
		invalidPorts := []int{0, -1, 65536, 70000}
		for _, port := range invalidPorts {
			valid := port >= MinPort && port <= MaxPort
			assert.False(t, valid, "port %d should be invalid", port)
		}
	})
}
