package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Engagement.TurnThreshold != 4 {
		t.Fatalf("turn threshold = %d", cfg.Engagement.TurnThreshold)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("store driver = %q", cfg.Store.Driver)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen_addr: ":9090"
api_key: file-secret
engagement:
  turn_threshold: 6
  persona_replies:
    - "first"
    - "second"
store:
  driver: redis
  redis_addr: "redis:6379"
oracle:
  provider: ollama
  model: llama3.1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.APIKey != "file-secret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Engagement.TurnThreshold != 6 || len(cfg.Engagement.PersonaReplies) != 2 {
		t.Fatalf("unexpected engagement config: %+v", cfg.Engagement)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.RedisAddr != "redis:6379" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Oracle.Provider != "ollama" {
		t.Fatalf("unexpected oracle config: %+v", cfg.Oracle)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("HONEYPOT_API_KEY", "env-secret")
	os.Setenv("HONEYPOT_TURN_THRESHOLD", "7")
	defer os.Unsetenv("HONEYPOT_API_KEY")
	defer os.Unsetenv("HONEYPOT_TURN_THRESHOLD")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "env-secret" {
		t.Fatalf("api key = %q", cfg.APIKey)
	}
	if cfg.Engagement.TurnThreshold != 7 {
		t.Fatalf("turn threshold = %d", cfg.Engagement.TurnThreshold)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("duration = %v", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Fatalf("empty duration = %v", got)
	}
	if got := Duration("junk", time.Minute); got != time.Minute {
		t.Fatalf("malformed duration = %v", got)
	}
}
