package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEnvOverlay(t *testing.T) {
	path := writeFile(t, `
telegram:
  token: from-file
  run_mode: polling
rate_limit:
  interval_ms: 500
  exclude_updates: [" Callback "]
`)
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclude = %v", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestNormalizeRejectsMissingToken(t *testing.T) {
	if err := Normalize(&Config{}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNormalizeWebhookRequiresURL(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook without url")
	}
	cfg.Webhook = WebhookConfig{URL: "https://example.org/hook", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeRejectsUnknownExclusion(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{"photo"}},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown update type")
	}
}

func TestNormalizeReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{RunMode: "webhook"},
		RateLimit: RateLimitConfig{IntervalMS: -1},
		Sender:    SenderConfig{Workers: -2},
	}
	err := Normalize(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"telegram.token", "webhook.url", "webhook.port", "rate_limit.interval_ms", "sender.workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestNormalizeDropsBlankExclusions(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" ", "MESSAGE"}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(cfg.RateLimit.ExcludeUpdates) != 1 || cfg.RateLimit.ExcludeUpdates[0] != UpdateMessage {
		t.Fatalf("exclude = %v", cfg.RateLimit.ExcludeUpdates)
	}
}
