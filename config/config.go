// Package config holds crawler and delivery settings.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds scraper, export, and delivery configuration.
type Config struct {
	BaseURL        string
	ReviewsBaseURL string
	Gender         string
	Limit          int

	Parallelism int
	Delay       time.Duration
	RandomDelay time.Duration
	Timeout     time.Duration
	UserAgent   string

	DataRoot     string
	OutputFormat string // jsonl, csv, json, or all
	MetricsAddr  string

	MongoURI      string
	MongoDatabase string

	SMTPHost       string
	SMTPPort       int
	AdminEmail     string
	AdminPassword  string
	RecipientEmail string
	RecipientName  string

	Verbose bool
}

// DefaultConfig returns conservative defaults for the shop target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://shop.adidas.jp",
		ReviewsBaseURL: "https://adidasjp.ugc.bazaarvoice.com/7896-ja_jp",
		Gender:         "mens",
		Limit:          0,
		Parallelism:    8,
		Delay:          0,
		RandomDelay:    0,
		Timeout:        15 * time.Second,
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		DataRoot:       "data",
		OutputFormat:   "jsonl",
		MongoDatabase:  "adidas",
		SMTPHost:       "smtp.gmail.com",
		SMTPPort:       587,
		RecipientName:  "there",
	}
}

// Load layers environment settings (prefix ADIDAS_) and an optional config
// file over the defaults.
func Load() (*Config, error) {
	v := viper.New()
	cfg := DefaultConfig()

	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("reviews_base_url", cfg.ReviewsBaseURL)
	v.SetDefault("gender", cfg.Gender)
	v.SetDefault("limit", cfg.Limit)
	v.SetDefault("parallelism", cfg.Parallelism)
	v.SetDefault("delay", cfg.Delay)
	v.SetDefault("random_delay", cfg.RandomDelay)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("data_root", cfg.DataRoot)
	v.SetDefault("output_format", cfg.OutputFormat)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("mongo_uri", cfg.MongoURI)
	v.SetDefault("mongo_database", cfg.MongoDatabase)
	v.SetDefault("smtp_host", cfg.SMTPHost)
	v.SetDefault("smtp_port", cfg.SMTPPort)
	v.SetDefault("admin_email", cfg.AdminEmail)
	v.SetDefault("admin_password", cfg.AdminPassword)
	v.SetDefault("recipient_email", cfg.RecipientEmail)
	v.SetDefault("recipient_name", cfg.RecipientName)

	v.SetEnvPrefix("ADIDAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("scraper")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.BaseURL = v.GetString("base_url")
	cfg.ReviewsBaseURL = v.GetString("reviews_base_url")
	cfg.Gender = v.GetString("gender")
	cfg.Limit = v.GetInt("limit")
	cfg.Parallelism = v.GetInt("parallelism")
	cfg.Delay = v.GetDuration("delay")
	cfg.RandomDelay = v.GetDuration("random_delay")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.UserAgent = v.GetString("user_agent")
	cfg.DataRoot = v.GetString("data_root")
	cfg.OutputFormat = strings.ToLower(v.GetString("output_format"))
	cfg.MetricsAddr = v.GetString("metrics_addr")
	cfg.MongoURI = v.GetString("mongo_uri")
	cfg.MongoDatabase = v.GetString("mongo_database")
	cfg.SMTPHost = v.GetString("smtp_host")
	cfg.SMTPPort = v.GetInt("smtp_port")
	cfg.AdminEmail = v.GetString("admin_email")
	cfg.AdminPassword = v.GetString("admin_password")
	cfg.RecipientEmail = v.GetString("recipient_email")
	cfg.RecipientName = v.GetString("recipient_name")

	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"base URL": c.BaseURL, "reviews base URL": c.ReviewsBaseURL} {
		if raw == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host", name)
		}
	}

	if c.Gender == "" {
		return fmt.Errorf("gender segment cannot be empty")
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DataRoot == "" {
		return fmt.Errorf("data root cannot be empty")
	}
	switch c.OutputFormat {
	case "jsonl", "csv", "json", "all":
	default:
		return fmt.Errorf("output format must be jsonl, csv, json, or all")
	}
	if c.SMTPPort < 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("smtp port out of range")
	}
	return nil
}

// MailConfigured reports whether the completion email can be sent.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.AdminEmail != "" && c.AdminPassword != "" && c.RecipientEmail != ""
}
