package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	configContent := `
api:
  base_url: "http://ink.internal:8000"
  api_token: "proxy-token"
  timeout_seconds: 30
poll:
  initial_delay_ms: 1000
  max_delay_ms: 5000
  multiplier: 1.5
  budget_seconds: 120
archive:
  enabled: true
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "ink-artifacts"
  use_ssl: false
  expire_days: 14
stub:
  port: 9090
  page_count: 8
  step_delay_ms: 50
  max_jobs: 20
log:
  level: "debug"
  format: "json"
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.BaseURL != "http://ink.internal:8000" {
		t.Errorf("Expected base URL http://ink.internal:8000, got %s", cfg.API.BaseURL)
	}
	if cfg.API.APIToken != "proxy-token" {
		t.Errorf("Expected api token proxy-token, got %s", cfg.API.APIToken)
	}
	if cfg.Poll.InitialDelayMS != 1000 {
		t.Errorf("Expected initial delay 1000, got %d", cfg.Poll.InitialDelayMS)
	}
	if cfg.Poll.Multiplier != 1.5 {
		t.Errorf("Expected multiplier 1.5, got %f", cfg.Poll.Multiplier)
	}
	if !cfg.Archive.Enabled {
		t.Error("Expected archive enabled")
	}
	if cfg.Archive.ExpireDays != 14 {
		t.Errorf("Expected expire days 14, got %d", cfg.Archive.ExpireDays)
	}
	if cfg.Stub.Port != 9090 {
		t.Errorf("Expected stub port 9090, got %d", cfg.Stub.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString("api:\n  base_url: \"\"\n"); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected default base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.Poll.InitialDelayMS != 2000 {
		t.Errorf("Expected default initial delay 2000, got %d", cfg.Poll.InitialDelayMS)
	}
	if cfg.Poll.MaxDelayMS != 10000 {
		t.Errorf("Expected default max delay 10000, got %d", cfg.Poll.MaxDelayMS)
	}
	if cfg.Poll.Multiplier != 1.2 {
		t.Errorf("Expected default multiplier 1.2, got %f", cfg.Poll.Multiplier)
	}
	if cfg.Poll.BudgetSeconds != 600 {
		t.Errorf("Expected default budget 600s, got %d", cfg.Poll.BudgetSeconds)
	}
	if cfg.Stub.Port != 8000 {
		t.Errorf("Expected default stub port 8000, got %d", cfg.Stub.Port)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected default base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.Archive.Enabled {
		t.Error("Expected archive disabled by default")
	}
	if cfg.Stub.PageCount != 4 {
		t.Errorf("Expected default page count 4, got %d", cfg.Stub.PageCount)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString("api: [not a mapping"); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	if _, err := Load(tmpFile.Name()); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
