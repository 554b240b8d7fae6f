// Package config loads the server configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (PORT, JWT_SECRET, GITHUB_CLIENT_ID, ...)
//  2. Optional YAML file (--config flag or DEVTRACK_CONFIG)
//  3. Defaults from ApplyDefaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	GitHub   GitHubConfig   `koanf:"github"`
	LLM      LLMConfig      `koanf:"llm"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ClientURL       string        `koanf:"client_url"` // frontend origin, used for CORS and redirects
	Env             string        `koanf:"env"`        // development | production
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	JWTSecret          string        `koanf:"jwt_secret"`
	TokenEncryptionKey string        `koanf:"token_encryption_key"`
	SessionTTL         time.Duration `koanf:"session_ttl"`
	DevSessionTTL      time.Duration `koanf:"dev_session_ttl"`
	BcryptCost         int           `koanf:"bcrypt_cost"`
}

type GitHubConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	CallbackURL  string        `koanf:"callback_url"`
	APIBaseURL   string        `koanf:"api_url"`
	Timeout      time.Duration `koanf:"timeout"`
	PageSize     int           `koanf:"page_size"`
	TopRepos     int           `koanf:"top_repos"`
}

type LLMConfig struct {
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float32       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
}

type LogConfig struct {
	Level string `koanf:"level"` // debug | info | warn | error
}

// envKeys maps the deployment's environment variable names onto config paths.
// Variables not listed here are ignored.
var envKeys = map[string]string{
	"PORT":                 "server.port",
	"CLIENT_URL":           "server.client_url",
	"APP_ENV":              "server.env",
	"SHUTDOWN_TIMEOUT":     "server.shutdown_timeout",
	"DB_PATH":              "database.path",
	"JWT_SECRET":           "auth.jwt_secret",
	"TOKEN_ENCRYPTION_KEY": "auth.token_encryption_key",
	"SESSION_TTL":          "auth.session_ttl",
	"DEV_SESSION_TTL":      "auth.dev_session_ttl",
	"BCRYPT_COST":          "auth.bcrypt_cost",
	"GITHUB_CLIENT_ID":     "github.client_id",
	"GITHUB_CLIENT_SECRET": "github.client_secret",
	"GITHUB_CALLBACK_URL":  "github.callback_url",
	"GITHUB_API_URL":       "github.api_url",
	"GITHUB_TIMEOUT":       "github.timeout",
	"GITHUB_PAGE_SIZE":     "github.page_size",
	"XAI_API_KEY":          "llm.api_key",
	"LLM_BASE_URL":         "llm.base_url",
	"LLM_MODEL":            "llm.model",
	"LLM_TIMEOUT":          "llm.timeout",
	"LLM_MAX_TOKENS":       "llm.max_tokens",
	"LOG_LEVEL":            "log.level",
}

// Load reads the optional YAML file at path and then overlays environment
// variables. An empty path skips the file; a non-empty path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config: %s exceeds %d bytes", path, maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey translates an environment variable into a config path. Returning
// an empty key tells koanf to skip the variable; empty values are skipped so
// that a blank variable never masks the file or the default.
func envKey(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	return envKeys[strings.ToUpper(name)], value
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ClientURL == "" {
		c.Server.ClientURL = "http://localhost:5173"
	}
	c.Server.ClientURL = strings.TrimRight(c.Server.ClientURL, "/")
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Database.Path == "" {
		c.Database.Path = "data/devtrack.db"
	}

	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Auth.DevSessionTTL == 0 {
		c.Auth.DevSessionTTL = 24 * time.Hour
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 12
	}

	if c.GitHub.CallbackURL == "" {
		c.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", c.Server.Port)
	}
	if c.GitHub.APIBaseURL == "" {
		c.GitHub.APIBaseURL = "https://api.github.com/"
	}
	if c.GitHub.Timeout == 0 {
		c.GitHub.Timeout = 10 * time.Second
	}
	if c.GitHub.PageSize == 0 {
		c.GitHub.PageSize = 100
	}
	if c.GitHub.TopRepos == 0 {
		c.GitHub.TopRepos = 6
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.x.ai/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "grok-beta"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.IsProduction() && (c.GitHub.ClientID == "" || c.GitHub.ClientSecret == "") {
		errs = append(errs, errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET are required in production"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// IsProduction reports whether the server runs with production settings
// (secure cookies, dev-login disabled).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}
