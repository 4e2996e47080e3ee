package config // package config loads application configuration from environment variables

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; nested structs are parsed in place.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`   // dev | test | prod
	Port string `env:"APP_PORT" envDefault:"8080"` // HTTP port to listen on

	Mongo     MongoConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	RoomShare RoomShareConfig
	AMQP      AMQPConfig

	// CronSecret authorises the room-share cleanup endpoint for schedulers
	// that carry no user token.  Empty disables the header check.
	CronSecret string `env:"CRON_SECRET"`
}

// MongoConfig describes the document store.
type MongoConfig struct {
	URI      string        `env:"MONGO_URI,required"`
	Database string        `env:"MONGO_DB" envDefault:"student_housing"`
	Timeout  time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
	// Transactions need a replica set.  Standalone servers run multi-document
	// writes without one.
	Transactions bool `env:"MONGO_TRANSACTIONS" envDefault:"true"`
}

// JWTConfig controls token issuance.
type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET,required"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"student-housing-api"`
	Audience   string        `env:"JWT_AUDIENCE" envDefault:"student-housing-clients"`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

// CookieConfig controls the refresh-token cookie.
type CookieConfig struct {
	Name   string `env:"REFRESH_COOKIE_NAME" envDefault:"refreshToken"`
	Domain string `env:"REFRESH_COOKIE_DOMAIN"`
	Path   string `env:"REFRESH_COOKIE_PATH" envDefault:"/api/auth"`
	Secure bool   `env:"REFRESH_COOKIE_SECURE" envDefault:"false"`
}

// RoomShareConfig drives the stale room-share sweep.
type RoomShareConfig struct {
	// CleanupInterval > 0 starts an in-process ticker.
	CleanupInterval  time.Duration `env:"ROOMSHARE_CLEANUP_INTERVAL" envDefault:"0"`
	InactivityCutoff time.Duration `env:"ROOMSHARE_INACTIVITY_CUTOFF" envDefault:"720h"`
}

// AMQPConfig locates the message broker.  An empty URL disables publishing
// and the consumer.
type AMQPConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	ConsumerEnabled bool   `env:"RABBITMQ_CONSUMER_ENABLED" envDefault:"true"`
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool { return c.Env == "dev" }

// Load parses the environment into a Config.  A missing required variable
// or an invalid value stops the process.
func Load(logger *zerolog.Logger) Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}
	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

func (c Config) validate() error {
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	if c.RoomShare.InactivityCutoff <= 0 {
		return fmt.Errorf("ROOMSHARE_INACTIVITY_CUTOFF must be positive")
	}
	return nil
}
