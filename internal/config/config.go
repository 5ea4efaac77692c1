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

const (
	StoreSQLite = "sqlite"
	StoreLocal  = "local"

	minSecretKeyLength = 32
)

var (
	ErrSecretKeyMissing     = errors.New("SECRET_KEY is required")
	ErrSecretKeyPlaceholder = errors.New("SECRET_KEY uses an insecure placeholder")
	ErrSecretKeyTooShort    = errors.New("SECRET_KEY must be at least 32 characters")
	ErrUnknownStore         = errors.New("STORE must be sqlite or local")
)

type Config struct {
	Port                string
	SecretKey           string
	Store               string
	DBPath              string
	LocalStorePath      string
	RedisURL            string
	CacheTTL            time.Duration
	CookieSecure        bool
	RolloverInterval    time.Duration
	ReminderInterval    time.Duration
	ReminderLeadMinutes int
	TelegramBotToken    string
	TelegramChatID      string
	DealsFeedURL        string
	Debug               bool
}

func (cfg Config) LocalMode() bool {
	return cfg.Store == StoreLocal
}

func Load() (Config, error) {
	cfg := Config{
		Port:                getenv("PORT", "8080"),
		Store:               strings.ToLower(getenv("STORE", StoreSQLite)),
		DBPath:              getenv("DB_PATH", filepath.Join("data", "daywindow.db")),
		LocalStorePath:      getenv("LOCAL_STORE_PATH", filepath.Join("data", "tasks.json")),
		RedisURL:            strings.TrimSpace(os.Getenv("REDIS_URL")),
		CacheTTL:            getdur("CACHE_TTL", 5*time.Minute),
		CookieSecure:        getbool("COOKIE_SECURE", false),
		RolloverInterval:    getdur("ROLLOVER_INTERVAL", time.Minute),
		ReminderInterval:    getdur("REMINDER_INTERVAL", time.Minute),
		ReminderLeadMinutes: getint("REMINDER_LEAD_MINUTES", 10),
		TelegramBotToken:    strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramChatID:      strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		DealsFeedURL:        strings.TrimSpace(os.Getenv("DEALS_FEED_URL")),
		Debug:               getbool("DEBUG", false),
	}

	if cfg.Store != StoreSQLite && cfg.Store != StoreLocal {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
	if cfg.ReminderLeadMinutes < 0 {
		cfg.ReminderLeadMinutes = 0
	}

	// Local mode has no sessions to sign.
	if cfg.LocalMode() {
		cfg.SecretKey = strings.TrimSpace(os.Getenv("SECRET_KEY"))
		return cfg, nil
	}

	secret, err := ResolveSecretKey(os.Getenv("SECRET_KEY"))
	if err != nil {
		return Config{}, err
	}
	cfg.SecretKey = secret
	return cfg, nil
}

func ResolveSecretKey(raw string) (string, error) {
	secret := strings.TrimSpace(raw)
	if secret == "" {
		return "", ErrSecretKeyMissing
	}
	switch strings.ToLower(secret) {
	case "change_me_in_production", "replace_with_at_least_32_random_characters", "changeme", "secret":
		return "", ErrSecretKeyPlaceholder
	}
	if len(secret) < minSecretKeyLength {
		return "", ErrSecretKeyTooShort
	}
	return secret, nil
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getdur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getint(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getbool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
