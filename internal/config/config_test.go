package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BQ_PROJECT_ID", "test-project")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Dataset != "budgetwise" {
		t.Errorf("Dataset = %q, want budgetwise", cfg.Dataset)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("GeminiModel = %q, want gemini-2.5-flash", cfg.GeminiModel)
	}
	if cfg.AITimeout != 30*time.Second {
		t.Errorf("AITimeout = %v, want 30s", cfg.AITimeout)
	}
}

func TestLoad_MissingProject(t *testing.T) {
	t.Setenv("BQ_PROJECT_ID", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when BQ_PROJECT_ID is unset")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Port = "http" }, true},
		{"port out of range", func(c *Config) { c.Port = "70000" }, true},
		{"zero timeout", func(c *Config) { c.AITimeout = 0 }, true},
		{"negative rate", func(c *Config) { c.AIRateRPS = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:      "8080",
				ProjectID: "p",
				Dataset:   "d",
				AITimeout: time.Second,
				AIRateRPS: 1,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	if got := getEnvDuration("TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration = %v, want 90s", got)
	}

	t.Setenv("TEST_DUR", "not-a-duration")
	if got := getEnvDuration("TEST_DUR", 5*time.Second); got != 5*time.Second {
		t.Errorf("getEnvDuration fallback = %v, want 5s", got)
	}
}
