// Package config loads gateway configuration from an optional YAML file with
// environment-variable overrides. Every field has a compiled-in default so the
// gateway can start with nothing but HONEYPOT_API_KEY set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	APIKey     string `yaml:"api_key"`

	Engagement EngagementConfig `yaml:"engagement"`
	Store      StoreConfig      `yaml:"store"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Report     ReportConfig     `yaml:"report"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EngagementConfig tunes the conversation engine. The reply table and polite
// default replace what used to be hard-coded per-handler variants.
type EngagementConfig struct {
	TurnThreshold  int      `yaml:"turn_threshold"`
	PoliteReply    string   `yaml:"polite_reply"`
	PersonaReplies []string `yaml:"persona_replies"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"` // "memory" or "redis"
	SessionTTL    string `yaml:"session_ttl"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type OracleConfig struct {
	Provider string `yaml:"provider"` // "gemini", "ollama" or "" (disabled)
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

type ReportConfig struct {
	EndpointURL string `yaml:"endpoint_url"`
	Timeout     string `yaml:"timeout"`
	MaxRetries  int    `yaml:"max_retries"`
	ArchivePath string `yaml:"archive_path"`
}

type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Engagement: EngagementConfig{
			TurnThreshold: 4,
			PoliteReply:   "Thanks for reaching out. Could you tell me a bit more about what this is regarding?",
		},
		Store: StoreConfig{
			Driver:     "memory",
			SessionTTL: "30m",
			RedisAddr:  "localhost:6379",
		},
		Oracle: OracleConfig{
			Timeout: "8s",
		},
		Report: ReportConfig{
			Timeout:     "10s",
			MaxRetries:  2,
			ArchivePath: "honeypot.db",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or missing) and
// then applies HONEYPOT_* environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "HONEYPOT_LISTEN_ADDR")
	setString(&cfg.APIKey, "HONEYPOT_API_KEY")
	setInt(&cfg.Engagement.TurnThreshold, "HONEYPOT_TURN_THRESHOLD")
	setString(&cfg.Store.Driver, "HONEYPOT_STORE_DRIVER")
	setString(&cfg.Store.SessionTTL, "HONEYPOT_SESSION_TTL")
	setString(&cfg.Store.RedisAddr, "HONEYPOT_REDIS_ADDR")
	setString(&cfg.Store.RedisPassword, "HONEYPOT_REDIS_PASSWORD")
	setString(&cfg.Oracle.Provider, "HONEYPOT_ORACLE_PROVIDER")
	setString(&cfg.Oracle.APIKey, "HONEYPOT_ORACLE_API_KEY")
	setString(&cfg.Oracle.Model, "HONEYPOT_ORACLE_MODEL")
	setString(&cfg.Oracle.BaseURL, "HONEYPOT_ORACLE_BASE_URL")
	setString(&cfg.Report.EndpointURL, "HONEYPOT_REPORT_URL")
	setString(&cfg.Report.ArchivePath, "HONEYPOT_ARCHIVE_PATH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Duration parses a duration string, falling back when empty or malformed.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
