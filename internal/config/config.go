// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds every setting of the API server.
type Config struct {
	StoreDriver    string        `env:"STORE_DRIVER,default=mongo" validate:"oneof=mongo badger sqlite memory"`
	MongoURI       string        `env:"MONGODB_URI" validate:"required_if=StoreDriver mongo"`
	MongoDatabase  string        `env:"MONGODB_DATABASE,default=chat_db" validate:"required"`
	BadgerPath     string        `env:"BADGER_PATH" validate:"required_if=StoreDriver badger"`
	SQLitePath     string        `env:"SQLITE_PATH" validate:"required_if=StoreDriver sqlite"`
	JWTSecret      string        `env:"JWT_SECRET" validate:"required_without=JWTKeys"`
	JWTKeys        string        `env:"JWT_KEYS"`
	JWTActiveKid   string        `env:"JWT_ACTIVE_KID"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,default=24h" validate:"gt=0s"`
	Port           int           `env:"PORT,default=50051" validate:"min=1,max=65535"`
	TLSCert        string        `env:"TLS_CERT" validate:"required_with=TLSKey"`
	TLSKey         string        `env:"TLS_KEY" validate:"required_with=TLSCert"`
	RequireTLS     bool          `env:"REQUIRE_TLS,default=false"`
	RateLimitRPM   int           `env:"RATE_LIMIT_RPM,default=10" validate:"min=1"`
	OpTimeout      time.Duration `env:"OP_TIMEOUT,default=5s" validate:"gt=0s"`
	MaxBodyLength  int           `env:"MAX_BODY_LENGTH,default=4000" validate:"min=1"`
	DirectoryLimit int           `env:"DIRECTORY_LIMIT,default=50" validate:"min=0"`
	LogLevel       string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

var validate = validator.New()

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse(env.EnvironToEnvSet(os.Environ()))
}

// Parse builds a validated Config from an environment set.
func Parse(es env.EnvSet) (Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.RequireTLS && cfg.TLSCert == "" {
		return Config{}, errors.New("invalid config: REQUIRE_TLS is set but TLS_CERT/TLS_KEY are not")
	}
	if cfg.JWTKeys != "" {
		keys, err := cfg.SigningKeys()
		if err != nil {
			return Config{}, err
		}
		if _, ok := keys[cfg.JWTActiveKid]; !ok {
			return Config{}, fmt.Errorf("invalid config: JWT_ACTIVE_KID %q is not in JWT_KEYS", cfg.JWTActiveKid)
		}
	}
	return cfg, nil
}

// SigningKeys parses JWT_KEYS ("kid:secret,kid2:secret2").
func (c Config) SigningKeys() (map[string]string, error) {
	keys := map[string]string{}
	for _, entry := range strings.Split(c.JWTKeys, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kid, secret, ok := strings.Cut(entry, ":")
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %q", entry)
		}
		keys[kid] = secret
	}
	return keys, nil
}

// Address is the listen address for the gRPC server.
func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Logger returns a text logger at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
