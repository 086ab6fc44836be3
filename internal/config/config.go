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
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	JWTIssuer        string
	JWTTTL           time.Duration
	ProgressCacheTTL time.Duration
	EventsChannel    string
	AllowOrigins     string
	AI               AIConfig
}

// AIConfig configures the optional text generation provider used for recommendations.
type AIConfig struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	Timeout         time.Duration
	MaxTokens       int
	Temperature     float64
	MaxPromptChars  int
	RetryAttempts   int
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
	v.SetEnvPrefix("EDUTRACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EduTrack API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("jwt.issuer", "edutrack-api")
	v.SetDefault("progress.cache_ttl", "5m")
	v.SetDefault("events.channel", "edutrack:attempts")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout", "15s")
	v.SetDefault("ai.max_tokens", 500)
	v.SetDefault("ai.temperature", 0.5)
	v.SetDefault("ai.max_prompt_chars", 4000)
	v.SetDefault("ai.retry_attempts", 2)

	jwtTTL, err := parseDuration(v, "jwt.ttl", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v, "progress.cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	aiTimeout, err := parseDuration(v, "ai.timeout", 15*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		JWTIssuer:        v.GetString("jwt.issuer"),
		JWTTTL:           jwtTTL,
		ProgressCacheTTL: cacheTTL,
		EventsChannel:    v.GetString("events.channel"),
		AllowOrigins:     v.GetString("cors.allow_origins"),
		AI: AIConfig{
			Provider:        strings.ToLower(v.GetString("ai.provider")),
			Model:           v.GetString("ai.model"),
			OpenAIAPIKey:    v.GetString("openai_api_key"),
			AnthropicAPIKey: v.GetString("anthropic_api_key"),
			GeminiAPIKey:    v.GetString("gemini_api_key"),
			Timeout:         aiTimeout,
			MaxTokens:       v.GetInt("ai.max_tokens"),
			Temperature:     v.GetFloat64("ai.temperature"),
			MaxPromptChars:  v.GetInt("ai.max_prompt_chars"),
			RetryAttempts:   v.GetInt("ai.retry_attempts"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 500
	}

	if cfg.AI.MaxPromptChars <= 0 {
		cfg.AI.MaxPromptChars = 4000
	}

	if cfg.AI.RetryAttempts < 0 {
		cfg.AI.RetryAttempts = 0
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return fallback, nil
	}

	return value, nil
}
