package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Log      LogConfig
	Browser  BrowserConfig
	Session  SessionConfig
	Server   ServerConfig
	Auth     AuthConfig
	OpenAI   OpenAIConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Slack    SlackConfig
}

// LogConfig controls the global zerolog logger.
type LogConfig struct {
	Level  string
	Format string
}

// BrowserConfig holds Chrome launch and WhatsApp Web settings.
type BrowserConfig struct {
	ProfileDir      string
	Bin             string
	Headless        bool
	WhatsAppURL     string
	ActionTimeout   time.Duration
	PageLoadTimeout time.Duration
}

// SessionConfig holds per-session runtime bounds.
type SessionConfig struct {
	EventLogCap       int
	LoginWatchTimeout time.Duration
	AgentStopTimeout  time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// AuthConfig enables bearer authentication when Secret is set.
type AuthConfig struct {
	Secret string //nolint:gosec // G117: JWT signing secret config
}

// Enabled reports whether the API requires bearer tokens.
func (a AuthConfig) Enabled() bool { return a.Secret != "" }

// OpenAIConfig holds the text generator settings.
type OpenAIConfig struct {
	APIKey  string //nolint:gosec // G117: API key config
	BaseURL string
	Model   string
}

// DatabaseConfig holds the optional PostgreSQL event archive settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
}

// RedisConfig holds the optional Redis event fan-out settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// SlackConfig holds the optional Slack alert settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Load reads configuration from environment variables.
// Every backing service is optional; an empty address disables it.
func Load() (*Config, error) {
	headless, err := getEnvBool("WA_HEADLESS", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	actionTimeout, err := getEnvDuration("WA_ACTION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pageLoadTimeout, err := getEnvDuration("WA_PAGE_LOAD_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	eventLogCap, err := getEnvInt("WA_EVENT_LOG_CAP", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	loginWatch, err := getEnvDuration("WA_LOGIN_WATCH_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	agentStop, err := getEnvDuration("WA_AGENT_STOP_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("WA_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("WA_SERVER_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvFloat("WA_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("WA_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("WA_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("WA_DB_MAX_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  getEnv("WA_LOG_LEVEL", "info"),
			Format: getEnv("WA_LOG_FORMAT", "json"),
		},
		Browser: BrowserConfig{
			ProfileDir:      getEnv("WA_PROFILE_DIR", defaultProfileDir()),
			Bin:             getEnv("WA_BROWSER_BIN", ""),
			Headless:        headless,
			WhatsAppURL:     getEnv("WA_WHATSAPP_URL", "https://web.whatsapp.com/"),
			ActionTimeout:   actionTimeout,
			PageLoadTimeout: pageLoadTimeout,
		},
		Session: SessionConfig{
			EventLogCap:       eventLogCap,
			LoginWatchTimeout: loginWatch,
			AgentStopTimeout:  agentStop,
		},
		Server: ServerConfig{
			Addr:           getEnv("WA_SERVER_ADDR", ":8000"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			CORSOrigins:    getEnvList("WA_CORS_ORIGINS", []string{"*"}),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Auth: AuthConfig{
			Secret: getEnv("WA_API_SECRET", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("WA_OPENAI_API_KEY", ""),
			BaseURL: getEnv("WA_OPENAI_BASE_URL", ""),
			Model:   getEnv("WA_OPENAI_MODEL", "gpt-4o-mini"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("WA_DATABASE_URL", ""),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("WA_REDIS_ADDR", ""),
			Password: getEnv("WA_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Slack: SlackConfig{
			BotToken: getEnv("WA_SLACK_BOT_TOKEN", ""),
			Channel:  getEnv("WA_SLACK_CHANNEL", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Browser.ProfileDir == "" {
		return errors.New("WA_PROFILE_DIR is required")
	}
	if c.Auth.Secret != "" && len(c.Auth.Secret) < 32 {
		return errors.New("WA_API_SECRET must be at least 32 characters")
	}
	if c.Auth.Secret == "" {
		log.Warn().Msg("WA_API_SECRET is empty; the API accepts unauthenticated requests")
	}

	if c.Session.EventLogCap < 1 {
		return fmt.Errorf("WA_EVENT_LOG_CAP must be >= 1, got %d", c.Session.EventLogCap)
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("WA_ACTION_TIMEOUT must be positive, got %s", c.Browser.ActionTimeout)
	}
	if c.Browser.PageLoadTimeout <= 0 {
		return fmt.Errorf("WA_PAGE_LOAD_TIMEOUT must be positive, got %s", c.Browser.PageLoadTimeout)
	}
	if c.Session.LoginWatchTimeout <= 0 {
		return fmt.Errorf("WA_LOGIN_WATCH_TIMEOUT must be positive, got %s", c.Session.LoginWatchTimeout)
	}
	if c.Session.AgentStopTimeout <= 0 {
		return fmt.Errorf("WA_AGENT_STOP_TIMEOUT must be positive, got %s", c.Session.AgentStopTimeout)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("WA_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("WA_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("WA_RATE_LIMIT_RPS must be positive, got %g", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("WA_RATE_LIMIT_BURST must be >= 1, got %d", c.Server.RateLimitBurst)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("WA_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Slack.BotToken != "" && c.Slack.Channel == "" {
		return errors.New("WA_SLACK_CHANNEL is required when WA_SLACK_BOT_TOKEN is set")
	}

	return nil
}

func defaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "wabot", "profiles")
	}
	return filepath.Join(home, ".wabot", "profiles")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
