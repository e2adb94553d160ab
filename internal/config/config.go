package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	PriceSource       string
	DataDir           string
	DBPath            string
	CacheEnabled      bool
	RequestTimeout    time.Duration
	RequestsPerSecond int
	LogLevel          string
	SharpePeriods     int
	MarketSymbol      string
	EventThreshold    float64
	RedisAddr         string // empty disables the shared cache
	RedisPassword     string
	RedisDB           int

	// bot only
	TelegramToken    string
	WebhookPublicURL string
	OpenAIKey        string
	Port             string
}

// Load reads a .env file if present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Config{
		PriceSource:       strings.ToLower(getEnv("PRICE_SOURCE", "yahoo")),
		DataDir:           getEnv("DATA_DIR", "data"),
		DBPath:            getEnv("DB_PATH", "compinvest.db"),
		CacheEnabled:      getEnvBool("CACHE_ENABLED", true),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT", 15)) * time.Second,
		RequestsPerSecond: getEnvInt("REQUESTS_PER_SECOND", 2),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SharpePeriods:     getEnvInt("SHARPE_PERIODS", 0),
		MarketSymbol:      strings.ToUpper(getEnv("MARKET_SYMBOL", "SPY")),
		EventThreshold:    getEnvFloat("EVENT_THRESHOLD", 10.0),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL:  os.Getenv("WEBHOOK_PUBLIC_URL"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		Port:              getEnv("PORT", "9095"),
	}

	switch cfg.PriceSource {
	case "yahoo", "financego", "csv":
	default:
		return Config{}, fmt.Errorf("PRICE_SOURCE must be yahoo, financego or csv, got %q", cfg.PriceSource)
	}
	if cfg.RequestsPerSecond <= 0 {
		return Config{}, fmt.Errorf("REQUESTS_PER_SECOND must be positive, got %d", cfg.RequestsPerSecond)
	}
	if cfg.SharpePeriods < 0 {
		return Config{}, fmt.Errorf("SHARPE_PERIODS must not be negative, got %d", cfg.SharpePeriods)
	}
	return cfg, nil
}

// RequireBot checks the secrets the Telegram server cannot start without.
// OPENAI_API_KEY is optional; without it replies carry no commentary.
func (c Config) RequireBot() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.WebhookPublicURL == "" {
		missing = append(missing, "WEBHOOK_PUBLIC_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	return nil
}

// SetupLogger points the global zerolog logger at stderr with the given level.
func SetupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("not an integer, using default")
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("not a number, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", value).Msg("not a boolean, using default")
	}
	return defaultValue
}
