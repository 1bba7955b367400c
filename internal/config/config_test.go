package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TimeoutSeconds != 60 {
		t.Errorf("Expected TimeoutSeconds 60, got %d", cfg.TimeoutSeconds)
	}

	if !cfg.ContinueInBackground {
		t.Error("Expected ContinueInBackground to default to true")
	}

	if cfg.Timeout() != time.Minute {
		t.Errorf("Expected Timeout 1m, got %v", cfg.Timeout())
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.TimeoutSeconds != 60 {
		t.Errorf("Expected default TimeoutSeconds, got %d", cfg.TimeoutSeconds)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COURIER_TIMEOUT_SECONDS", "5")
	t.Setenv("COURIER_DISABLE_COOKIES", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.TimeoutSeconds != 5 {
		t.Errorf("Expected TimeoutSeconds 5 from env, got %d", cfg.TimeoutSeconds)
	}
	if !cfg.DisableCookies {
		t.Error("Expected DisableCookies from env")
	}
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COURIER_TIMEOUT_SECONDS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("Expected validation error for zero timeout")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg := DefaultConfig()
	cfg.TimeoutSeconds = 15
	cfg.UserAgent = "test-agent"
	cfg.RateLimitKBps = 512
	cfg.ContinueInBackground = false
	cfg.GlobalHeaders = map[string]string{"X-Api": "v1"}
	cfg.Credentials = []HostCredential{
		{Username: "alice", Password: "secret"},
		{Host: "api.example.com", Username: "bot", Password: "token"},
	}

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, ".config", "courier", "courier.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}
	if GetConfigPath() != configPath {
		t.Errorf("GetConfigPath = %s, want %s", GetConfigPath(), configPath)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.TimeoutSeconds != 15 {
		t.Errorf("TimeoutSeconds mismatch: expected 15, got %d", loaded.TimeoutSeconds)
	}
	if loaded.UserAgent != "test-agent" {
		t.Errorf("UserAgent mismatch: got %s", loaded.UserAgent)
	}
	if loaded.RateLimitKBps != 512 {
		t.Errorf("RateLimitKBps mismatch: got %d", loaded.RateLimitKBps)
	}
	if loaded.ContinueInBackground {
		t.Error("ContinueInBackground should have been persisted as false")
	}
	// viper lowercases map keys; header names are canonicalised by the library
	if loaded.GlobalHeaders["x-api"] != "v1" {
		t.Errorf("GlobalHeaders = %v", loaded.GlobalHeaders)
	}
	if len(loaded.Credentials) != 2 {
		t.Fatalf("Credentials = %+v", loaded.Credentials)
	}
	if got := loaded.Credentials[1]; got.Host != "api.example.com" || got.Username != "bot" || got.Password != "token" {
		t.Errorf("host credential = %+v", got)
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Credentials = []HostCredential{{Host: "example.com", Password: "x"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for credential without username")
	}
	cfg.Credentials[0].Username = "alice"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
