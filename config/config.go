package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		Port        string   `env:"SERVER_PORT" envDefault:"5280"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	// Database configuration
	Database struct {
		Path string `env:"DB_PATH" envDefault:"database/qrent.db"`
	}

	// Redis configuration for the statistics cache
	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`

		// When disabled, the stats cache runs on the in-memory client
		Enabled bool `env:"REDIS_ENABLED" envDefault:"true"`
	}

	// Stats cache configuration
	Stats struct {
		// Time-to-live for cached regional statistics (in seconds)
		CacheTTL int `env:"STATS_CACHE_TTL" envDefault:"3600"`

		// Whether the scheduler should warm the all-regions entry periodically
		WarmEnabled bool `env:"STATS_WARM_ENABLED" envDefault:"true"`
	}

	// BatchProcessing configuration for the ingestion pipeline
	BatchProcessing struct {
		// Maximum number of listings to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
