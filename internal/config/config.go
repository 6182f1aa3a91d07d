package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the backend's runtime configuration sourced from env vars.
type Config struct {
	Port        string
	Env         string
	RedisURL    string
	RedisPass   string
	RedisDB     int
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string
	AdminEmails []string

	Games GameRules
}

// GameRules are the reward economy knobs shared by every mini-game.
type GameRules struct {
	FreePlaysPerDay     int
	UnlockCost          int64
	UnlockWindow        time.Duration
	LotteryJackpot      int64
	LotteryPairReward   int64
	DinoPointsPerReward int
	DinoMaxReward       int64
	ReferralBonusTokens int64
	MinWithdrawal       int64
}

func DefaultGameRules() GameRules {
	return GameRules{
		FreePlaysPerDay:     3,
		UnlockCost:          4,
		UnlockWindow:        24 * time.Hour,
		LotteryJackpot:      50,
		LotteryPairReward:   5,
		DinoPointsPerReward: 100,
		DinoMaxReward:       20,
		ReferralBonusTokens: 1,
		MinWithdrawal:       100,
	}
}

// Load reads the backend configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		Env:         fallback(os.Getenv("APP_ENV"), "development"),
		RedisURL:    fallback(os.Getenv("REDIS_URL"), "localhost:6379"),
		RedisPass:   strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:     intEnv("REDIS_DB", 0),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), "learn-and-earn"),
		JWTTTL:      time.Duration(intEnv("JWT_TTL_MINUTES", 7*24*60)) * time.Minute,
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		AdminEmails: parseEmails(os.Getenv("ADMIN_EMAILS")),
	}

	rules := DefaultGameRules()
	rules.FreePlaysPerDay = intEnv("FREE_PLAYS_PER_DAY", rules.FreePlaysPerDay)
	rules.UnlockCost = int64(intEnv("UNLOCK_COST", int(rules.UnlockCost)))
	rules.UnlockWindow = time.Duration(intEnv("UNLOCK_WINDOW_HOURS", 24)) * time.Hour
	rules.LotteryJackpot = int64(intEnv("LOTTERY_JACKPOT", int(rules.LotteryJackpot)))
	rules.LotteryPairReward = int64(intEnv("LOTTERY_PAIR_REWARD", int(rules.LotteryPairReward)))
	rules.DinoPointsPerReward = intEnv("DINO_POINTS_PER_REWARD", rules.DinoPointsPerReward)
	rules.DinoMaxReward = int64(intEnv("DINO_MAX_REWARD", int(rules.DinoMaxReward)))
	rules.ReferralBonusTokens = int64(intEnv("REFERRAL_BONUS_TOKENS", int(rules.ReferralBonusTokens)))
	rules.MinWithdrawal = int64(intEnv("MIN_WITHDRAWAL", int(rules.MinWithdrawal)))
	cfg.Games = rules

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if rules.FreePlaysPerDay <= 0 {
		return nil, fmt.Errorf("FREE_PLAYS_PER_DAY must be positive, got %d", rules.FreePlaysPerDay)
	}
	if rules.DinoPointsPerReward <= 0 {
		return nil, fmt.Errorf("DINO_POINTS_PER_REWARD must be positive, got %d", rules.DinoPointsPerReward)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIBaseURL      string
	APIPrefix       string
	RequestTimeout  time.Duration
	CredentialsPath string
	MinSpin         time.Duration
	UnlockCost      int64
	Debug           bool
}

const defaultAPIBaseURL = "http://localhost:8080"

// LoadClient reads the terminal client configuration from the environment.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIBaseURL:      fallback(os.Getenv("API_BASE_URL"), defaultAPIBaseURL),
		APIPrefix:       strings.TrimSpace(os.Getenv("API_PREFIX")),
		RequestTimeout:  time.Duration(intEnv("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		CredentialsPath: strings.TrimSpace(os.Getenv("LEARNEARN_CREDENTIALS")),
		MinSpin:         time.Duration(intEnv("MIN_SPIN_MILLIS", 2000)) * time.Millisecond,
		UnlockCost:      int64(intEnv("UNLOCK_COST", 4)),
		Debug:           os.Getenv("LEARNEARN_DEBUG") == "true",
	}

	if cfg.CredentialsPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		cfg.CredentialsPath = filepath.Join(dir, "learnearn", "credentials.json")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func intEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseEmails(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if email := strings.ToLower(strings.TrimSpace(part)); email != "" {
			out = append(out, email)
		}
	}
	return out
}
