package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "WA_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "WA_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "WA_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "WA_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "WA_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "WA_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "parses negative int", key: "WA_TEST_INT_NEG", setVal: strPtr("-1"), fallback: 0, want: -1},
		{name: "returns fallback for empty string", key: "WA_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "WA_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "WA_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback float64
		want     float64
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "WA_TEST_FLOAT_UNSET", setVal: nil, fallback: 2.5, want: 2.5},
		{name: "parses float", key: "WA_TEST_FLOAT_VALID", setVal: strPtr("0.5"), fallback: 0, want: 0.5},
		{name: "parses int form", key: "WA_TEST_FLOAT_INT", setVal: strPtr("12"), fallback: 0, want: 12},
		{name: "errors on garbage", key: "WA_TEST_FLOAT_BAD", setVal: strPtr("fast"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvFloat(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "WA_TEST_BOOL_UNSET", setVal: nil, fallback: false, want: false},
		{name: "fallback true when unset", key: "WA_TEST_BOOL_UNSETTRUE", setVal: nil, fallback: true, want: true},
		{name: "parses true", key: "WA_TEST_BOOL_TRUE", setVal: strPtr("true"), fallback: false, want: true},
		{name: "parses 0", key: "WA_TEST_BOOL_ZERO", setVal: strPtr("0"), fallback: true, want: false},
		{name: "errors on invalid", key: "WA_TEST_BOOL_INV", setVal: strPtr("yes"), fallback: false, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvBool(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "WA_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses seconds", key: "WA_TEST_DUR_SEC", setVal: strPtr("30s"), fallback: 0, want: 30 * time.Second},
		{name: "parses composite", key: "WA_TEST_DUR_COMP", setVal: strPtr("1h30m"), fallback: 0, want: 90 * time.Minute},
		{name: "errors on invalid", key: "WA_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "WA_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("WA_TEST_LIST", " a, b ,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("WA_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("WA_TEST_LIST_UNSET", []string{"x"}))
}

// ---------------------------------------------------------------------------
// Load()
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, filepath.Join("/home/tester", ".wabot", "profiles"), cfg.Browser.ProfileDir)
	assert.Empty(t, cfg.Browser.Bin)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "https://web.whatsapp.com/", cfg.Browser.WhatsAppURL)
	assert.Equal(t, 10*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, 30*time.Second, cfg.Browser.PageLoadTimeout)

	assert.Equal(t, 100, cfg.Session.EventLogCap)
	assert.Equal(t, 60*time.Second, cfg.Session.LoginWatchTimeout)
	assert.Equal(t, 5*time.Second, cfg.Session.AgentStopTimeout)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 20.0, cfg.Server.RateLimitRPS, 1e-9)
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)

	assert.False(t, cfg.Auth.Enabled())
	assert.Empty(t, cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 5, cfg.Database.MaxConns)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Slack.BotToken)
}

func TestLoad_AllCustomValues(t *testing.T) {
	envs := map[string]string{
		"WA_LOG_LEVEL":            "debug",
		"WA_LOG_FORMAT":           "text",
		"WA_PROFILE_DIR":          "/data/profiles",
		"WA_BROWSER_BIN":          "/usr/bin/chromium",
		"WA_HEADLESS":             "true",
		"WA_WHATSAPP_URL":         "http://localhost:9999/",
		"WA_ACTION_TIMEOUT":       "3s",
		"WA_PAGE_LOAD_TIMEOUT":    "45s",
		"WA_EVENT_LOG_CAP":        "250",
		"WA_LOGIN_WATCH_TIMEOUT":  "2m",
		"WA_AGENT_STOP_TIMEOUT":   "1s",
		"WA_SERVER_ADDR":          ":9090",
		"WA_SERVER_READ_TIMEOUT":  "5s",
		"WA_SERVER_WRITE_TIMEOUT": "15s",
		"WA_CORS_ORIGINS":         "http://a.test, http://b.test",
		"WA_API_SECRET":           "prod-jwt-secret-256-bits-long!!!",
		"WA_RATE_LIMIT_RPS":       "2.5",
		"WA_RATE_LIMIT_BURST":     "5",
		"WA_OPENAI_API_KEY":       "sk-test",
		"WA_OPENAI_BASE_URL":      "http://llm.local/v1",
		"WA_OPENAI_MODEL":         "gpt-4o",
		"WA_DATABASE_URL":         "postgres://u:p@db/wabot",
		"WA_DB_MAX_CONNS":         "9",
		"WA_REDIS_ADDR":           "redis:6379",
		"WA_REDIS_PASSWORD":       "redis-pass",
		"WA_REDIS_DB":             "3",
		"WA_SLACK_BOT_TOKEN":      "xoxb-test",
		"WA_SLACK_CHANNEL":        "C123",
	}
	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/data/profiles", cfg.Browser.ProfileDir)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.Bin)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "http://localhost:9999/", cfg.Browser.WhatsAppURL)
	assert.Equal(t, 3*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, 45*time.Second, cfg.Browser.PageLoadTimeout)
	assert.Equal(t, 250, cfg.Session.EventLogCap)
	assert.Equal(t, 2*time.Minute, cfg.Session.LoginWatchTimeout)
	assert.Equal(t, time.Second, cfg.Session.AgentStopTimeout)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Auth.Enabled())
	assert.InDelta(t, 2.5, cfg.Server.RateLimitRPS, 1e-9)
	assert.Equal(t, 5, cfg.Server.RateLimitBurst)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "http://llm.local/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "postgres://u:p@db/wabot", cfg.Database.URL)
	assert.Equal(t, 9, cfg.Database.MaxConns)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis-pass", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
	assert.Equal(t, "C123", cfg.Slack.Channel)
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
	}{
		{name: "HEADLESS not a bool", envKey: "WA_HEADLESS", envVal: "yes"},
		{name: "ACTION_TIMEOUT invalid", envKey: "WA_ACTION_TIMEOUT", envVal: "soon"},
		{name: "ACTION_TIMEOUT zero", envKey: "WA_ACTION_TIMEOUT", envVal: "0s"},
		{name: "PAGE_LOAD_TIMEOUT negative", envKey: "WA_PAGE_LOAD_TIMEOUT", envVal: "-1s"},
		{name: "EVENT_LOG_CAP zero", envKey: "WA_EVENT_LOG_CAP", envVal: "0"},
		{name: "EVENT_LOG_CAP not a number", envKey: "WA_EVENT_LOG_CAP", envVal: "lots"},
		{name: "LOGIN_WATCH_TIMEOUT zero", envKey: "WA_LOGIN_WATCH_TIMEOUT", envVal: "0s"},
		{name: "AGENT_STOP_TIMEOUT invalid", envKey: "WA_AGENT_STOP_TIMEOUT", envVal: "x"},
		{name: "SERVER_READ_TIMEOUT zero", envKey: "WA_SERVER_READ_TIMEOUT", envVal: "0s"},
		{name: "SERVER_WRITE_TIMEOUT invalid", envKey: "WA_SERVER_WRITE_TIMEOUT", envVal: "notduration"},
		{name: "RATE_LIMIT_RPS zero", envKey: "WA_RATE_LIMIT_RPS", envVal: "0"},
		{name: "RATE_LIMIT_BURST zero", envKey: "WA_RATE_LIMIT_BURST", envVal: "0"},
		{name: "REDIS_DB not a number", envKey: "WA_REDIS_DB", envVal: "abc"},
		{name: "DB_MAX_CONNS zero", envKey: "WA_DB_MAX_CONNS", envVal: "0"},
		{name: "API_SECRET too short", envKey: "WA_API_SECRET", envVal: "only-31-characters-long-secret!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.envKey, tc.envVal)

			cfg, err := Load()
			require.Error(t, err, "expected error for %s=%q", tc.envKey, tc.envVal)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.envKey)
		})
	}
}

func TestLoad_SlackTokenWithoutChannel(t *testing.T) {
	t.Setenv("WA_SLACK_BOT_TOKEN", "xoxb-test")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "WA_SLACK_CHANNEL")
}

// ---------------------------------------------------------------------------
// validate() direct tests
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	validBase := func() *Config {
		return &Config{
			Browser: BrowserConfig{
				ProfileDir:      "/tmp/profiles",
				ActionTimeout:   time.Second,
				PageLoadTimeout: time.Second,
			},
			Session: SessionConfig{
				EventLogCap:       100,
				LoginWatchTimeout: time.Minute,
				AgentStopTimeout:  time.Second,
			},
			Server: ServerConfig{
				ReadTimeout:    10 * time.Second,
				WriteTimeout:   30 * time.Second,
				RateLimitRPS:   1,
				RateLimitBurst: 1,
			},
			Database: DatabaseConfig{MaxConns: 1},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validBase().validate())
	})

	t.Run("empty profile dir fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Browser.ProfileDir = ""
		assert.ErrorContains(t, c.validate(), "WA_PROFILE_DIR")
	})

	t.Run("API secret exactly 32 chars passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Auth.Secret = "exactly-32-characters-long-sec!!"
		assert.NoError(t, c.validate())
	})

	t.Run("event log cap 1 passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Session.EventLogCap = 1
		assert.NoError(t, c.validate())
	})

	t.Run("negative event log cap fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Session.EventLogCap = -3
		assert.ErrorContains(t, c.validate(), "WA_EVENT_LOG_CAP")
	})
}

func strPtr(s string) *string { return &s }
