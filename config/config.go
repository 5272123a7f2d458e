package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is read from the environment, optionally seeded by a .env file.
type Config struct {
	Port              string        `mapstructure:"PORT"`
	MongoURI          string        `mapstructure:"MONGO_URI"`
	MongoDB           string        `mapstructure:"MONGO_DB"`
	MongoTransactions bool          `mapstructure:"MONGO_TRANSACTIONS"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret  string        `mapstructure:"JWT_REFRESH_SECRET"`
	AccessTokenTTL    time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL   time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	EmailProvider     string        `mapstructure:"EMAIL_PROVIDER"`
	PostmarkAPIToken  string        `mapstructure:"POSTMARK_API_TOKEN"`
	SendGridAPIKey    string        `mapstructure:"SENDGRID_API_KEY"`
	EmailSender       string        `mapstructure:"EMAIL_SENDER"`
	ClientURL         string        `mapstructure:"CLIENT_URL"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogPretty         bool          `mapstructure:"LOG_PRETTY"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var defaults = map[string]any{
	"PORT":               "8000",
	"MONGO_URI":          "mongodb://localhost:27017",
	"MONGO_DB":           "storefront",
	"MONGO_TRANSACTIONS": false,
	"JWT_SECRET":         "",
	"JWT_REFRESH_SECRET": "",
	"ACCESS_TOKEN_TTL":   "15m",
	"REFRESH_TOKEN_TTL":  "168h",
	"EMAIL_PROVIDER":     "",
	"POSTMARK_API_TOKEN": "",
	"SENDGRID_API_KEY":   "",
	"EMAIL_SENDER":       "no-reply@storefront.local",
	"CLIENT_URL":         "http://localhost:5173",
	"LOG_LEVEL":          "info",
	"LOG_PRETTY":         false,
	"REQUEST_TIMEOUT":    "10s",
}

// Load reads .env files (if any) and the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Debug().Msg("No .env file found. Proceeding with environment variables.")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// AutomaticEnv only resolves keys viper already knows about.
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.JWTRefreshSecret == "" {
		cfg.JWTRefreshSecret = cfg.JWTSecret + ".refresh"
	}
	return &cfg, nil
}
