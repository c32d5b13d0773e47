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
				assert.Equal(t, "generations_db", cfg.Database.Database)
				assert.Equal(t, "generations_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "generations_queue", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "mediagen-api-service", cfg.App.Name)
				assert.Equal(t, "https://queue.fal.run", cfg.Fal.QueueEndpoint)
				assert.Equal(t, 10*time.Second, cfg.Fal.PollInterval)
				assert.Equal(t, 30, cfg.Fal.MaxPollAttempts)
			}
		})
	}
}

func validTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "generations_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Exchange: ExchangeConfig{
				Name: "generations_exchange",
			},
			Queue: QueueConfig{
				Name: "generations_queue",
			},
		},
		Worker: WorkerConfig{
			Concurrency:       4,
			MaxJobs:           100,
			JobTimeout:        10 * time.Minute,
			HeartbeatInterval: 30 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Fal: FalConfig{
			APIKey:          "test-key",
			PollInterval:    10 * time.Second,
			MaxPollAttempts: 30,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
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
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

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
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "zero job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			wantErr:   true,
			errString: "worker job_timeout must be greater than 0",
		},
		{
			name:      "zero heartbeat interval",
			mutate:    func(c *Config) { c.Worker.HeartbeatInterval = 0 },
			wantErr:   true,
			errString: "worker heartbeat_interval must be greater than 0",
		},
		{
			name:      "missing fal api key",
			mutate:    func(c *Config) { c.Fal.APIKey = "" },
			wantErr:   true,
			errString: "fal api_key is required",
		},
		{
			name:      "negative poll attempts",
			mutate:    func(c *Config) { c.Fal.MaxPollAttempts = -1 },
			wantErr:   true,
			errString: "fal max_poll_attempts must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			// Keep the FAL_KEY fallback out of these cases
			t.Setenv("FAL_KEY", "")

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

func TestFalConfig_ResolveAPIKey(t *testing.T) {
	t.Run("explicit key wins", func(t *testing.T) {
		t.Setenv("FAL_KEY", "env-key")
		cfg := FalConfig{APIKey: "yaml-key"}
		assert.Equal(t, "yaml-key", cfg.ResolveAPIKey())
	})

	t.Run("falls back to FAL_KEY", func(t *testing.T) {
		t.Setenv("FAL_KEY", "env-key")
		cfg := FalConfig{}
		assert.Equal(t, "env-key", cfg.ResolveAPIKey())
	})
}

func TestConfig_BuildCatalog(t *testing.T) {
	t.Run("defaults when no override configured", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)

		catalog := cfg.BuildCatalog()
		model, err := catalog.Resolve("text_to_video", "")
		require.NoError(t, err)
		assert.Equal(t, "fal-ai/fast-animatediff/text-to-video", model)
	})

	t.Run("configured catalog replaces defaults", func(t *testing.T) {
		cfg, err := Load("testdata/catalog_override.yaml")
		require.NoError(t, err)

		catalog := cfg.BuildCatalog()

		model, err := catalog.Resolve("text_to_video", "")
		require.NoError(t, err)
		assert.Equal(t, "fal-ai/custom-video-model", model)

		_, err = catalog.Resolve("text_to_video", "fal-ai/hunyuan-video")
		require.Error(t, err)
	})
}
