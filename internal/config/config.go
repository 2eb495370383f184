// Package config loads settings for the aichub CLI and the devapi server.
//
// CLI settings come from three layers, later ones winning:
//
//	defaults → YAML file (~/.config/aichub/config.yaml) → environment
//
// Command-line flags are applied on top by the CLI itself. The devapi server
// reads only environment variables, see LoadServer.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Output  OutputConfig  `yaml:"output"`
	Import  ImportConfig  `yaml:"import"`
}

// APIConfig locates the AIC HUB API.
type APIConfig struct {
	// URL is the API origin, e.g. http://localhost:8080
	URL string `yaml:"url"`
	// Timeout bounds every request.
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig says where the session cookie is kept between runs.
type SessionConfig struct {
	File string `yaml:"file"`
}

// OutputConfig controls what the CLI prints.
type OutputConfig struct {
	JSON     bool   `yaml:"json"`
	LogLevel string `yaml:"log_level"`
	PageSize int    `yaml:"page_size"`
}

// ImportConfig limits feed imports.
type ImportConfig struct {
	MaxItems int `yaml:"max_items"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:     "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			File: filepath.Join(configDir(), "session.json"),
		},
		Output: OutputConfig{
			LogLevel: "warn",
			PageSize: 20,
		},
		Import: ImportConfig{
			MaxItems: 20,
		},
	}
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".aichub"
	}
	return filepath.Join(dir, "aichub")
}

// Load reads path (a missing file is fine), then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	cfg.API.URL = getEnv("AICHUB_API_URL", cfg.API.URL)
	cfg.API.Timeout = getEnvDuration("AICHUB_TIMEOUT", cfg.API.Timeout)
	cfg.Session.File = getEnv("AICHUB_SESSION_FILE", cfg.Session.File)
	cfg.Output.LogLevel = getEnv("LOG_LEVEL", cfg.Output.LogLevel)
	cfg.Output.PageSize = getEnvInt("AICHUB_PAGE_SIZE", cfg.Output.PageSize)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.url must be an http(s) URL, got %q", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive")
	}
	if c.Session.File == "" {
		return fmt.Errorf("config: session.file is required")
	}
	if _, err := ParseLevel(c.Output.LogLevel); err != nil {
		return err
	}
	if c.Output.PageSize < 1 || c.Output.PageSize > 100 {
		return fmt.Errorf("config: output.page_size must be between 1 and 100")
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// ParseLevel maps debug/info/warn/error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}

// Server is the devapi configuration.
type Server struct {
	Port               int
	DBPath             string
	JWTSecret          string
	WebBaseURL         string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	LogLevel           string
	ShutdownTimeout    time.Duration
}

// LoadServer reads the devapi configuration from the environment.
func LoadServer() (*Server, error) {
	cfg := &Server{
		Port:               getEnvInt("PORT", 8080),
		DBPath:             getEnv("DB_PATH", "data/aichub.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		WebBaseURL:         getEnv("WEB_BASE_URL", ""),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "debug"),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the devapi configuration.
func (s *Server) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535")
	}
	if s.DBPath == "" {
		return fmt.Errorf("config: DB_PATH is required")
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// GitHubEnabled reports whether OAuth credentials are configured.
func (s *Server) GitHubEnabled() bool {
	return s.GitHubClientID != "" && s.GitHubClientSecret != ""
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
