package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty base url", mutate: func(c *Config) { c.BaseURL = "" }},
		{name: "base url without host", mutate: func(c *Config) { c.BaseURL = "/relative/path" }},
		{name: "empty reviews url", mutate: func(c *Config) { c.ReviewsBaseURL = "" }},
		{name: "empty gender", mutate: func(c *Config) { c.Gender = "" }},
		{name: "negative limit", mutate: func(c *Config) { c.Limit = -1 }},
		{name: "zero parallelism", mutate: func(c *Config) { c.Parallelism = 0 }},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }},
		{name: "empty data root", mutate: func(c *Config) { c.DataRoot = "" }},
		{name: "bad output format", mutate: func(c *Config) { c.OutputFormat = "xml" }},
		{name: "smtp port out of range", mutate: func(c *Config) { c.SMTPPort = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv("ADIDAS_LIMIT", "5")
	t.Setenv("ADIDAS_OUTPUT_FORMAT", "ALL")
	t.Setenv("ADIDAS_MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limit != 5 {
		t.Fatalf("limit = %d, want 5", cfg.Limit)
	}
	if cfg.OutputFormat != "all" {
		t.Fatalf("output format = %q, want all (lowercased)", cfg.OutputFormat)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Fatalf("mongo uri = %q", cfg.MongoURI)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestMailConfigured(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MailConfigured() {
		t.Fatalf("mail should not be configured without credentials")
	}
	cfg.AdminEmail = "scraper@example.com"
	cfg.AdminPassword = "secret"
	cfg.RecipientEmail = "reports@example.com"
	if !cfg.MailConfigured() {
		t.Fatalf("mail should be configured")
	}
}
