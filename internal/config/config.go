// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment.
// A .env file in the working directory is loaded by cmd/server before Load runs.
type Config struct {
	Addr     string
	LogLevel string

	SelectionSeconds int
	WinnerSeconds    int
	CallInterval     time.Duration
	ExhaustionDelay  time.Duration
	CardCount        int
	CardSeed         int64
	OutboxSize       int

	// Stake is the per-card price in wallet units. Zero disables the wallet.
	Stake           int64
	HouseCutPercent int

	RedisAddr  string
	RedisDB    int
	QueueName  string
	HistoryOff bool

	DatabaseURL string

	AllowedOrigins []string
	KeyPath        string
}

// Load reads every setting, falling back to defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		Addr:     ":" + getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SelectionSeconds: getEnvInt("SELECTION_SECONDS", 45),
		WinnerSeconds:    getEnvInt("WINNER_SECONDS", 5),
		CallInterval:     getEnvDuration("CALL_INTERVAL", 3*time.Second),
		ExhaustionDelay:  getEnvDuration("EXHAUSTION_DELAY", 5*time.Second),
		CardCount:        getEnvInt("CARD_COUNT", 99),
		CardSeed:         int64(getEnvInt("CARD_SEED", 1)),
		OutboxSize:       getEnvInt("OUTBOX_SIZE", 64),

		Stake:           int64(getEnvInt("STAKE", 0)),
		HouseCutPercent: getEnvInt("HOUSE_CUT_PERCENT", 0),

		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		QueueName:  getEnv("HISTORIAN_QUEUE_NAME", "bingo_round_actions"),
		HistoryOff: getEnvBool("HISTORY_DISABLED", false),

		DatabaseURL: databaseURL(),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		KeyPath:        os.Getenv("JWT_KEY_PATH"),
	}

	if cfg.SelectionSeconds < 1 || cfg.WinnerSeconds < 1 {
		return Config{}, fmt.Errorf("phase windows must be at least one second (selection=%d, winner=%d)",
			cfg.SelectionSeconds, cfg.WinnerSeconds)
	}
	if cfg.CardCount < 1 {
		return Config{}, fmt.Errorf("CARD_COUNT must be positive, got %d", cfg.CardCount)
	}
	if cfg.Stake < 0 {
		return Config{}, fmt.Errorf("STAKE must not be negative, got %d", cfg.Stake)
	}
	if cfg.HouseCutPercent < 0 || cfg.HouseCutPercent > 100 {
		return Config{}, fmt.Errorf("HOUSE_CUT_PERCENT must be within 0..100, got %d", cfg.HouseCutPercent)
	}
	if cfg.Stake > 0 && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("STAKE requires a database for wallets")
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the PG_* variables.
func databaseURL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	host := os.Getenv("PG_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		getEnv("PG_PORT", "5432"),
		os.Getenv("PG_DATABASE"),
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("3s") or plain milliseconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
