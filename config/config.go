package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// ✅ Database
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"petalboard"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"petalboard.db"`

	// ✅ Organizer sessions
	JWTAccessSecret   string `env:"JWT_ACCESS_SECRET"`
	JWTAccessTTLHours int    `env:"JWT_ACCESS_TTL_HOURS" envDefault:"24"`

	// PinPepper keys the per-event PIN fingerprints. Rotating it invalidates
	// duplicate detection for existing RSVPs.
	PinPepper string `env:"PIN_PEPPER"`

	// ✅ Redis Config
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// ✅ Kafka Config
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaSyncTopic string   `env:"KAFKA_SYNC_TOPIC" envDefault:"playlist-sync"`
	KafkaGroupID   string   `env:"KAFKA_GROUP_ID" envDefault:"petalboard-playlist-sync"`

	// ✅ Spotify Config
	SpotifyClientID     string        `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string        `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  string        `env:"SPOTIFY_REDIRECT_URI" envDefault:"http://localhost:8080/api/v1/spotify/callback"`
	SpotifyAPIURL       string        `env:"SPOTIFY_API_URL" envDefault:"https://api.spotify.com/v1"`
	SpotifyAccountsURL  string        `env:"SPOTIFY_ACCOUNTS_URL" envDefault:"https://accounts.spotify.com"`
	SpotifyTimeout      time.Duration `env:"SPOTIFY_TIMEOUT" envDefault:"10s"`
	SpotifyRPS          float64       `env:"SPOTIFY_RPS" envDefault:"5"`

	SyncWorkers        int      `env:"SYNC_WORKERS" envDefault:"2"`
	RateLimitPerMinute int64    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
	CORSOrigins        []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	FrontendURL        string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
}

// Load reads the optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.PinPepper == "" {
		cfg.PinPepper = cfg.JWTAccessSecret
	}
	return &cfg, nil
}

// AccessTTL is the lifetime of organizer access tokens.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLHours) * time.Hour
}

// SpotifyEnabled reports whether Spotify OAuth credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}
