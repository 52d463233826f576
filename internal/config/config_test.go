package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Database.Driver != "sqlite" || cfg.Session.Store != "memory" {
		t.Errorf("driver/store = %q/%q", cfg.Database.Driver, cfg.Session.Store)
	}
	if cfg.Intake.CompletionThreshold != 75 || cfg.Intake.TopN != 3 {
		t.Errorf("intake = %+v", cfg.Intake)
	}
	if cfg.LLM.Timeout != 60*time.Second || cfg.Session.TTL != 24*time.Hour {
		t.Errorf("timeouts = %v/%v", cfg.LLM.Timeout, cfg.Session.TTL)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intake.yaml")
	yaml := "server:\n  port: 9090\nintake:\n  top_n: 5\nllm:\n  timeout: 5s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INTAKE_LLM_API_KEY", "sk-test")
	t.Setenv("INTAKE_INTAKE_COMPLETION_THRESHOLD", "80")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Intake.TopN != 5 || cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("file values not applied: %+v %+v %v", cfg.Server, cfg.Intake, cfg.LLM.Timeout)
	}
	if cfg.LLM.APIKey != "sk-test" || cfg.Intake.CompletionThreshold != 80 {
		t.Errorf("env values not applied: key=%q threshold=%d", cfg.LLM.APIKey, cfg.Intake.CompletionThreshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"bad store", func(c *Config) { c.Session.Store = "memcached" }, true},
		{"bad threshold", func(c *Config) { c.Intake.CompletionThreshold = 120 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Driver: "sqlite"},
				Session:  SessionConfig{Store: "memory"},
				Intake:   IntakeConfig{CompletionThreshold: 75},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
