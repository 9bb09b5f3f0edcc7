package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skufu/healthrisk/internal/auth"
)

type Config struct {
	Port             string
	LogLevel         string
	LogPretty        bool
	DatabaseURL      string
	EnableDB         bool
	DBConnectTimeout time.Duration
	MigrationsDir    string
	ModelBackend     string
	ModelPath        string
	ModelURL         string
	ModelTimeout     time.Duration
	ModelRPS         int
	Credentials      auth.Credentials
	SessionTTL       time.Duration
	CookieSecure     bool
	CORSOrigins      []string
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getBool("LOG_PRETTY", false),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		EnableDB:      getBool("ENABLE_DB", false),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "file://./migrations"),
		ModelBackend:  strings.ToLower(getEnv("MODEL_BACKEND", "file")),
		ModelPath:     getEnv("MODEL_PATH", "./models/health_model.json"),
		ModelURL:      os.Getenv("MODEL_URL"),
		CookieSecure:  getBool("COOKIE_SECURE", false),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.DBConnectTimeout, err = getDuration("DB_CONNECT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ModelTimeout, err = getDuration("MODEL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 8*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ModelRPS, err = getInt("MODEL_RPS", 20); err != nil {
		return nil, err
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	switch cfg.ModelBackend {
	case "file":
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("MODEL_PATH is required when MODEL_BACKEND=file")
		}
	case "remote":
		if cfg.ModelURL == "" {
			return nil, fmt.Errorf("MODEL_URL is required when MODEL_BACKEND=remote")
		}
	default:
		return nil, fmt.Errorf("unknown MODEL_BACKEND %q", cfg.ModelBackend)
	}

	cfg.Credentials, err = loadCredentials()
	if err != nil {
		return nil, err
	}
	// With a database the clinicians table is the source instead.
	if !cfg.EnableDB && len(cfg.Credentials) == 0 {
		return nil, fmt.Errorf("AUTH_USERS or AUTH_USERS_FILE is required when ENABLE_DB=false")
	}

	return cfg, nil
}

func loadCredentials() (auth.Credentials, error) {
	creds := auth.Credentials{}
	if path := os.Getenv("AUTH_USERS_FILE"); path != "" {
		fromFile, err := auth.LoadCredentialsFile(path)
		if err != nil {
			return nil, fmt.Errorf("AUTH_USERS_FILE: %w", err)
		}
		for user, hash := range fromFile {
			creds[user] = hash
		}
	}
	if raw := os.Getenv("AUTH_USERS"); raw != "" {
		fromEnv, err := auth.ParseCredentials(raw)
		if err != nil {
			return nil, fmt.Errorf("AUTH_USERS: %w", err)
		}
		for user, hash := range fromEnv {
			creds[user] = hash
		}
	}
	return creds, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true") || val == "1"
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
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
