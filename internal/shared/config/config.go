package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/eschota/secs-matchmaking/internal/shared/format"
)

// Config carries every tunable the core uses. The pairing and
// settlement numbers are policy, not law, so they all come from the
// environment with the reference defaults below.
type Config struct {
	// Server
	GatewayPort string
	LogLevel    string

	// Collaborators. Empty values disable the integration.
	RedisAddr     string
	RedisPassword string
	NatsURL       string
	DatabaseURL   string

	// Scheduler
	TickInterval time.Duration
	ErrorBackoff time.Duration

	// Queue / pairing policy
	BaseThreshold       int
	ThresholdMultiplier float64
	ThresholdStep       time.Duration
	MinThreshold        int

	// Settlement policy
	WinDelta  int
	LoseDelta int
	DrawDelta int

	// Lifecycle
	StaleAfter        time.Duration
	FinishedRetention time.Duration
	MaxDurations      map[format.Format]time.Duration
}

func Load() (*Config, error) {
	// .env is optional outside dev
	_ = godotenv.Load()

	maxDuration := parseDuration(getEnv("MATCH_MAX_DURATION", "60s"))
	cfg := &Config{
		GatewayPort: getEnv("GATEWAY_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_MATCHMAKE_ADDR", ""),
		RedisPassword: getEnv("REDIS_PW", ""),
		NatsURL:       getEnv("NATS_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		TickInterval: parseDuration(getEnv("MATCH_TICK_INTERVAL", "10s")),
		ErrorBackoff: parseDuration(getEnv("MATCH_ERROR_BACKOFF", "30s")),

		BaseThreshold:       parseInt(getEnv("MATCH_BASE_THRESHOLD", "20")),
		ThresholdMultiplier: parseFloat(getEnv("MATCH_THRESHOLD_MULTIPLIER", "0.1")),
		ThresholdStep:       parseDuration(getEnv("MATCH_THRESHOLD_STEP", "10s")),
		MinThreshold:        parseInt(getEnv("MATCH_MIN_THRESHOLD", "100")),

		WinDelta:  parseInt(getEnv("MATCH_WIN_DELTA", "20")),
		LoseDelta: parseInt(getEnv("MATCH_LOSE_DELTA", "-20")),
		DrawDelta: parseInt(getEnv("MATCH_DRAW_DELTA", "5")),

		StaleAfter:        parseDuration(getEnv("PLAYER_STALE_AFTER", "3m")),
		FinishedRetention: parseDuration(getEnv("MATCH_FINISHED_RETENTION", "10m")),
		MaxDurations: map[format.Format]time.Duration{
			format.OneVsOne:      maxDuration,
			format.TwoVsTwo:      maxDuration,
			format.FourPlayerFFA: maxDuration,
		},
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
