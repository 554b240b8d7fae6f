package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-at-least-16-chars!!"

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "8081")
	t.Setenv("GITHUB_TIMEOUT", "3s")
	t.Setenv("XAI_API_KEY", "xai-123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.GitHub.Timeout != 3*time.Second {
		t.Errorf("GitHub.Timeout = %v, want 3s", cfg.GitHub.Timeout)
	}
	if cfg.LLM.APIKey != "xai-123" {
		t.Errorf("LLM.APIKey = %q, want %q", cfg.LLM.APIKey, "xai-123")
	}
	if cfg.GitHub.CallbackURL != "http://localhost:8081/api/auth/github/callback" {
		t.Errorf("GitHub.CallbackURL = %q", cfg.GitHub.CallbackURL)
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devtrack.yaml")
	content := `server:
  port: 9090
  client_url: https://devtrack.example.com/
auth:
  jwt_secret: file-secret-0123456789
github:
  page_size: 50
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("PORT env should override file: got %d", cfg.Server.Port)
	}
	if cfg.Server.ClientURL != "https://devtrack.example.com" {
		t.Errorf("ClientURL = %q, trailing slash should be trimmed", cfg.Server.ClientURL)
	}
	if cfg.GitHub.PageSize != 50 {
		t.Errorf("GitHub.PageSize = %d, want 50", cfg.GitHub.PageSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() should fail for a missing explicit config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Auth.SessionTTL != 7*24*time.Hour {
		t.Errorf("Auth.SessionTTL = %v, want 7d", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.DevSessionTTL != 24*time.Hour {
		t.Errorf("Auth.DevSessionTTL = %v, want 24h", cfg.Auth.DevSessionTTL)
	}
	if cfg.LLM.BaseURL != "https://api.x.ai/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid development config",
			mutate: func(c *Config) {},
		},
		{
			name:    "short JWT secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "short" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "production without OAuth credentials",
			mutate:  func(c *Config) { c.Server.Env = "production" },
			wantErr: "GITHUB_CLIENT_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Auth: AuthConfig{JWTSecret: testSecret}}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
