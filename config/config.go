package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config stores the application configuration. Values come from the
// environment (optionally seeded from a .env file) with the defaults below.
type Config struct {
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`
	WebAppDir    string `env:"WEB_APP_DIR" envDefault:"web/ui"`
	PublicOrigin string `env:"PUBLIC_ORIGIN" envDefault:"http://localhost:8080"`

	// Store: "redis" or "memory". Memory keeps everything in-process.
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"redis"`
	TrackCollection string        `env:"TRACK_COLLECTION" envDefault:"music-tracks"`
	WriteTimeout    time.Duration `env:"STORE_WRITE_TIMEOUT" envDefault:"10s"`
	OfflineFallback bool          `env:"OFFLINE_FALLBACK" envDefault:"true"`

	// Realtime store (Redis).
	RedisHost     string `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// History ledger (MySQL). Disabled when DBHost is empty.
	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`
	DBUser     string `env:"DB_USER" envDefault:"root"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"aster"`

	// Audio offload (MinIO). Disabled when MinioEndpoint is empty.
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"aster-player"`
	MinioRegion    string `env:"MINIO_REGION" envDefault:"us-east-1"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	// Cross-origin bridge allowlist: exact scheme://host[:port] values.
	PartnerOrigins []string `env:"PARTNER_ORIGINS" envSeparator:"," envDefault:"https://aster-alarm.vercel.app"`

	// Delete gate. The hash is bcrypt; an empty hash keeps deletion locked.
	DeletePasswordHash string        `env:"DELETE_PASSWORD_HASH"`
	DeleteSessionTTL   time.Duration `env:"DELETE_SESSION_TTL" envDefault:"30m"`

	InboxDir string `env:"INBOX_DIR" envDefault:"inbox"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30"`
	LogCompress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() (*Config, error) {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}
	return Parse(env.Options{})
}

// Parse builds a Config from the environment described by opts. Tests pass
// an Environment map to stay independent of the process environment.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	switch c.StoreDriver {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (want redis or memory)", c.StoreDriver)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("STORE_WRITE_TIMEOUT must be positive, got %s", c.WriteTimeout)
	}

	origins := make([]string, 0, len(c.PartnerOrigins))
	for _, o := range c.PartnerOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			return fmt.Errorf("PARTNER_ORIGINS must list explicit origins, not a wildcard")
		}
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" {
			return fmt.Errorf("invalid partner origin %q", o)
		}
		origins = append(origins, o)
	}
	c.PartnerOrigins = origins
	return nil
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// HistoryEnabled reports whether the MySQL ledger is configured.
func (c *Config) HistoryEnabled() bool {
	return c.DBHost != ""
}

// OffloadEnabled reports whether data-URI audio should go to MinIO.
func (c *Config) OffloadEnabled() bool {
	return c.MinioEndpoint != ""
}
