// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENV,default=development"`
	ServerPort  string `env:"SERVER_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	DBDriver    string `env:"DB_DRIVER,default=sqlite"`
	DatabaseDSN string `env:"DATABASE_DSN,default=pdfchat.db"`

	JWTSecretKey string `env:"JWT_SECRET_KEY"`

	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	ChatModel     string        `env:"CHAT_MODEL,default=gpt-4o-mini"`
	AITimeout     time.Duration `env:"AI_TIMEOUT,default=30s"`

	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT,default=120s"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES,default=10485760"`
	MaxDocumentChars int           `env:"MAX_DOCUMENT_CHARS,default=24000"`

	BlobPath      string `env:"BLOB_PATH,default=data/blobs"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`

	SendRateLimit  int           `env:"SEND_RATE_LIMIT,default=20"`
	SendRateWindow time.Duration `env:"SEND_RATE_WINDOW,default=1m"`
}

// Load reads configuration from environment variables, and from a .env
// file outside production.
func Load() (*Config, error) {
	if !isProduction(os.Getenv("ENV")) {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

// Validate reports every problem at once rather than the first one found.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() {
		missing := []string{}
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("missing required production environment variables: %v", missing))
		}
	}

	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.ChatModel == "" {
		errs = append(errs, errors.New("CHAT_MODEL is required"))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.MaxDocumentChars <= 0 {
		errs = append(errs, errors.New("MAX_DOCUMENT_CHARS must be positive"))
	}
	if c.SendRateLimit <= 0 || c.SendRateWindow <= 0 {
		errs = append(errs, errors.New("SEND_RATE_LIMIT and SEND_RATE_WINDOW must be positive"))
	}
	if !strings.HasPrefix(c.PublicBaseURL, "http://") && !strings.HasPrefix(c.PublicBaseURL, "https://") {
		errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an http(s) URL, got %q", c.PublicBaseURL))
	}

	return errors.Join(errs...)
}

func isProduction(environment string) bool {
	return strings.ToLower(environment) == "production"
}
