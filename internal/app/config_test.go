package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const baseConfig = `
telegram:
  token: tok
spotify:
  client_id: id
  client_secret: secret
composer:
  resolve_url: https://composer.test/download
  metadata_url: https://composer.test/details
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Telegram.RunMode != "longpoll" {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Spotify.SearchLimit != 10 || cfg.Composer.TimeoutSeconds != 30 {
		t.Fatalf("spotify/composer defaults = %+v %+v", cfg.Spotify, cfg.Composer)
	}
	if cfg.Session.Capacity != 1000 || cfg.Session.TTLMinutes != 30 {
		t.Fatalf("session defaults = %+v", cfg.Session)
	}
	if cfg.Download.MetadataPolicy != "abort" || cfg.Download.ValidationTTLSeconds != 10 || cfg.Download.ProcessingTimeoutSeconds != 300 {
		t.Fatalf("download defaults = %+v", cfg.Download)
	}
	if cfg.CoreConfig().Telegram.Token != "tok" {
		t.Fatal("core config not embedded")
	}
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_SECRET", "from-env")
	t.Setenv("DOWNLOAD_METADATA_POLICY", "Degrade")
	cfg, err := LoadConfig(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Spotify.ClientSecret != "from-env" {
		t.Fatalf("secret = %q", cfg.Spotify.ClientSecret)
	}
	if cfg.Download.MetadataPolicy != "degrade" {
		t.Fatalf("policy = %q", cfg.Download.MetadataPolicy)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]string{
		"spotify":  strings.Replace(baseConfig, "client_id: id", "client_id: \"\"", 1),
		"composer": strings.Replace(baseConfig, "resolve_url: https://composer.test/download", "resolve_url: \"\"", 1),
		"policy":   baseConfig + "download:\n  metadata_policy: retry\n",
		"unknown":  baseConfig + "spotify_extra: 1\n",
	}
	for name, body := range cases {
		_, err := LoadConfig(writeConfig(t, body))
		if name == "unknown" {
			if err != nil {
				t.Fatalf("%s: unknown keys must be ignored: %v", name, err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTelegramRunOptionsWiring(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseConfig+`
sender:
  queue_size: 32
  workers: 2
  max_retries: 5
  retry_backoff_ms: 750
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("TelegramRunOptions: %v", err)
	}
	if _, _, ok := opts.Registry.LookupCommand("/s"); !ok {
		t.Fatal("alias /s not registered")
	}
	if _, ok := opts.Registry.GetCallback("pg"); !ok {
		t.Fatal("pager callback not registered")
	}
	if opts.Registry.TextFallback() == nil {
		t.Fatal("text fallback not set")
	}
	visible := opts.Registry.ListCommands(true)
	for _, c := range visible {
		if c.Text == "stats" {
			t.Fatal("/stats must be hidden")
		}
	}
	d := opts.DispatcherOptions
	if d.QueueSize != 32 || d.Workers != 2 || d.MaxRetries != 5 || d.RetryBackoff != 750*time.Millisecond {
		t.Fatalf("dispatcher options = %+v", d)
	}
	if opts.OnStart == nil || opts.OnStop == nil || len(opts.Routes) == 0 {
		t.Fatalf("incomplete options: %+v", opts)
	}
}
