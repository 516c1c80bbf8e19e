package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the kiosk daemon configuration.
type Config struct {
	APIBaseURL string `yaml:"api_base_url"`
	SocketURL  string `yaml:"socket_url"`

	RealtimeProtocol    string        `yaml:"realtime_protocol"`
	RealtimeMaxAttempts int           `yaml:"realtime_max_attempts"`
	RealtimeRetryDelay  time.Duration `yaml:"realtime_retry_delay"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	BindAddr string `yaml:"bind_addr"`
	Port     string `yaml:"port"`
	GinMode  string `yaml:"gin_mode"`
	UIOrigin string `yaml:"ui_origin"`

	JWTSecret    string `yaml:"jwt_secret"`
	AdminPINHash string `yaml:"admin_pin_hash"`

	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	DefaultLanguage string        `yaml:"default_language"`
	DefaultCurrency string        `yaml:"default_currency"`
	WakeLock        bool          `yaml:"wake_lock"`
	LogLevel        string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIBaseURL:          "https://geral-ordengoapi.r954jc.easypanel.host/api/v1",
		SocketURL:           "https://geral-ordengoapi.r954jc.easypanel.host",
		RealtimeProtocol:    "socketio",
		RealtimeMaxAttempts: 5,
		RealtimeRetryDelay:  time.Second,
		HTTPTimeout:         15 * time.Second,
		DBDriver:            "sqlite",
		DBDSN:               "kiosk.db",
		BindAddr:            "127.0.0.1",
		Port:                "8090",
		UIOrigin:            "http://localhost:3000",
		IdleTimeout:         180 * time.Second,
		DefaultLanguage:     "es",
		DefaultCurrency:     "EUR",
		WakeLock:            true,
		LogLevel:            "info",
	}
}

// Load reads .env (if present), then the YAML file named by KIOSK_CONFIG, then
// the environment. Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("KIOSK_CONFIG"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("API_BASE_URL", &c.APIBaseURL)
	str("SOCKET_URL", &c.SocketURL)
	str("REALTIME_PROTOCOL", &c.RealtimeProtocol)
	str("DB_DRIVER", &c.DBDriver)
	str("DB_DSN", &c.DBDSN)
	str("BIND_ADDR", &c.BindAddr)
	str("PORT", &c.Port)
	str("GIN_MODE", &c.GinMode)
	str("UI_ORIGIN", &c.UIOrigin)
	str("JWT_SECRET", &c.JWTSecret)
	str("ADMIN_PIN_HASH", &c.AdminPINHash)
	str("DEFAULT_LANGUAGE", &c.DefaultLanguage)
	str("DEFAULT_CURRENCY", &c.DefaultCurrency)
	str("LOG_LEVEL", &c.LogLevel)

	if v := getenv("REALTIME_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: REALTIME_MAX_ATTEMPTS: %w", err)
		}
		c.RealtimeMaxAttempts = n
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REALTIME_RETRY_DELAY", &c.RealtimeRetryDelay},
		{"HTTP_TIMEOUT", &c.HTTPTimeout},
		{"IDLE_TIMEOUT", &c.IdleTimeout},
	}
	for _, d := range durations {
		if v := getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}
	if v := getenv("WAKE_LOCK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: WAKE_LOCK: %w", err)
		}
		c.WakeLock = b
	}
	return nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("config: API_BASE_URL is not set")
	}
	if c.SocketURL == "" {
		return errors.New("config: SOCKET_URL is not set")
	}
	switch c.RealtimeProtocol {
	case "socketio", "json":
	default:
		return fmt.Errorf("config: unknown REALTIME_PROTOCOL %q", c.RealtimeProtocol)
	}
	if c.RealtimeMaxAttempts < 0 {
		return errors.New("config: REALTIME_MAX_ATTEMPTS must not be negative")
	}
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// ListenAddr is the address of the local control API.
func (c Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}
