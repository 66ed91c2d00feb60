package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	AppBaseURL          string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	JWTSecret           string
	OpenAIAPIKey        string
	OpenAIModel         string
	StripeSecretKey     string
	StripeWebhookSecret string
	ReportPriceCents    int64
	EvaluationTimeout   time.Duration
	TaskListCacheTTL    time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SMARTCODE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SmartCode API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "http://localhost:3000")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("report.price_cents", 500)
	v.SetDefault("evaluation.timeout", "60s")
	v.SetDefault("task_list.cache_ttl", "30s")

	evalTimeout, err := time.ParseDuration(v.GetString("evaluation.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid evaluation timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("task_list.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid task list cache ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		AppBaseURL:          strings.TrimSuffix(v.GetString("app.base_url"), "/"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		OpenAIAPIKey:        v.GetString("openai.api_key"),
		OpenAIModel:         v.GetString("openai.model"),
		StripeSecretKey:     v.GetString("stripe.secret_key"),
		StripeWebhookSecret: v.GetString("stripe.webhook_secret"),
		ReportPriceCents:    v.GetInt64("report.price_cents"),
		EvaluationTimeout:   evalTimeout,
		TaskListCacheTTL:    cacheTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
		return Config{}, fmt.Errorf("stripe secret key and webhook secret must be provided")
	}

	if cfg.ReportPriceCents <= 0 {
		cfg.ReportPriceCents = 500
	}

	return cfg, nil
}
