package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr           string        `envconfig:"HTTP_ADDR" default:":8080"`
	GinMode        string        `envconfig:"GIN_MODE" default:"release"`
	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"10s"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// AuthConfig carries the token signing material. SigningKey and the values of
// VerificationKeys are base64 encoded secrets; SigningKeyFile points at a
// mounted secret holding the same encoding and wins over SigningKey.
type AuthConfig struct {
	SigningKey       string            `envconfig:"JWT_SIGNING_KEY"`
	SigningKeyFile   string            `envconfig:"JWT_SIGNING_KEY_FILE"`
	SigningKeyID     string            `envconfig:"JWT_SIGNING_KEY_ID" default:"primary"`
	VerificationKeys map[string]string `envconfig:"JWT_VERIFICATION_KEYS"`
	TokenTTL         time.Duration     `envconfig:"JWT_TOKEN_TTL" default:"24h"`
	BcryptCost       int               `envconfig:"BCRYPT_COST" default:"10"`
	PublicPrefixes   []string          `envconfig:"AUTH_PUBLIC_PREFIXES" default:"/auth/"`
}

type StoreConfig struct {
	// Driver is either "postgres" or "memory".
	Driver string `envconfig:"USER_STORE" default:"postgres"`
}

type PostgresConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Host        string `envconfig:"PGHOST" default:"localhost"`
	Port        string `envconfig:"PGPORT" default:"5432"`
	User        string `envconfig:"PGUSER"`
	Password    string `envconfig:"PGPASSWORD"`
	Database    string `envconfig:"PGDATABASE"`
	SSLMode     string `envconfig:"PGSSLMODE" default:"disable"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads an optional .env file from the working directory and then
// decodes the process environment on top of the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the process environment without touching .env files.
func FromEnv() (Config, error) {
	var cfg Config
	sections := []struct {
		name string
		spec any
	}{
		{"server", &cfg.Server},
		{"auth", &cfg.Auth},
		{"store", &cfg.Store},
		{"postgres", &cfg.Postgres},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.spec); err != nil {
			return Config{}, fmt.Errorf("%s config: %w", s.name, err)
		}
	}
	return cfg, nil
}
