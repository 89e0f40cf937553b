package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,     default=8080"`
	Env      string `env:"ENV,      default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Directory DirectoryConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Journal   JournalConfig
}

type DirectoryConfig struct {
	// Backend selects the directory adapter: "cognito" in production,
	// "mongo" for local development.
	Backend string `env:"DIRECTORY_BACKEND, default=mongo"`

	// SharedCredential is the pool-wide provisioning password used as both
	// the temporary and the permanent credential.
	SharedCredential string `env:"SHARED_CREDENTIAL"`

	// Cognito settings, required when Backend is "cognito".
	UserPoolID string `env:"USER_POOL_ID"`
	ClientID   string `env:"CLIENT_ID"`

	// JWTSecret signs the tokens minted by the mongo backend.
	JWTSecret string `env:"JWT_SECRET"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity_service"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type JournalConfig struct {
	// StaleAfter is how long a provision-journal entry may stay pending
	// before the sweeper reports it.
	StaleAfter time.Duration `env:"JOURNAL_STALE_AFTER, default=5m"`
	// SweepInterval is how often the sweeper scans the journal.
	SweepInterval time.Duration `env:"JOURNAL_SWEEP_INTERVAL, default=1m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Directory.SharedCredential == "" {
		return fmt.Errorf("config: SHARED_CREDENTIAL is required")
	}
	switch c.Directory.Backend {
	case "cognito":
		if c.Directory.UserPoolID == "" || c.Directory.ClientID == "" {
			return fmt.Errorf("config: USER_POOL_ID and CLIENT_ID are required for the cognito backend")
		}
	case "mongo":
		if c.Directory.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required for the mongo backend")
		}
	default:
		return fmt.Errorf("config: unknown DIRECTORY_BACKEND %q", c.Directory.Backend)
	}
	return nil
}
