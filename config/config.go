package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Poll    PollConfig    `yaml:"poll"`
	Archive ArchiveConfig `yaml:"archive"`
	Stub    StubConfig    `yaml:"stub"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig selects the Ink API origin the client talks to.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// APIToken, when set, is sent as a bearer token. The upstream API itself
	// is unauthenticated; this only matters behind an authenticating proxy.
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PollConfig tunes the status polling loop.
type PollConfig struct {
	InitialDelayMS int     `yaml:"initial_delay_ms"`
	MaxDelayMS     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
	BudgetSeconds  int     `yaml:"budget_seconds"`
}

// ArchiveConfig configures the optional object-storage sink for
// completed artifacts.
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// StubConfig configures the local development stub server.
type StubConfig struct {
	Port        int `yaml:"port"`
	PageCount   int `yaml:"page_count"`
	StepDelayMS int `yaml:"step_delay_ms"`
	MaxJobs     int `yaml:"max_jobs"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var GlobalConfig *Config

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 60
	}
	if cfg.Poll.InitialDelayMS == 0 {
		cfg.Poll.InitialDelayMS = 2000
	}
	if cfg.Poll.MaxDelayMS == 0 {
		cfg.Poll.MaxDelayMS = 10000
	}
	if cfg.Poll.Multiplier == 0 {
		cfg.Poll.Multiplier = 1.2
	}
	if cfg.Poll.BudgetSeconds == 0 {
		cfg.Poll.BudgetSeconds = 600
	}
	if cfg.Archive.ExpireDays == 0 {
		cfg.Archive.ExpireDays = 7
	}
	if cfg.Stub.Port == 0 {
		cfg.Stub.Port = 8000
	}
	if cfg.Stub.PageCount == 0 {
		cfg.Stub.PageCount = 4
	}
	if cfg.Stub.StepDelayMS == 0 {
		cfg.Stub.StepDelayMS = 200
	}
	if cfg.Stub.MaxJobs == 0 {
		cfg.Stub.MaxJobs = 100
	}
}
