package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Load decodes and normalizes a core-only configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads the YAML file at path into dst and overlays the environment
// through envconfig tags. dst is usually a bot config embedding Config.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config: env overlay: %w", err)
	}
	return nil
}

// Normalize validates cfg and rewrites enum fields to their canonical form.
// Every invalid field is reported, not only the first.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var errs *multierror.Error
	errs = multierror.Append(errs, cfg.Telegram.normalize(cfg.Webhook)...)
	errs = multierror.Append(errs, cfg.RateLimit.normalize()...)
	errs = multierror.Append(errs, cfg.Sender.validate()...)
	return errs.ErrorOrNil()
}

func (t *TelegramConfig) normalize(hook WebhookConfig) []error {
	var errs []error
	if strings.TrimSpace(t.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	mode := strings.ToLower(strings.TrimSpace(t.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		t.RunMode = RunModeLongpoll
		if t.LongPollTimeoutSeconds < 0 {
			errs = append(errs, errors.New("telegram.longpoll_timeout_seconds must be >= 0"))
		}
	case RunModeWebhook:
		t.RunMode = RunModeWebhook
		if strings.TrimSpace(hook.URL) == "" {
			errs = append(errs, errors.New("webhook.url is required in webhook mode"))
		}
		if strings.TrimSpace(hook.Listen) == "" {
			errs = append(errs, errors.New("webhook.listen is required in webhook mode"))
		}
		if hook.Port <= 0 {
			errs = append(errs, errors.New("webhook.port must be > 0 in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("telegram.run_mode %q is not one of webhook, longpoll", t.RunMode))
	}
	return errs
}

func (r *RateLimitConfig) normalize() []error {
	var errs []error
	if r.IntervalMS < 0 {
		errs = append(errs, errors.New("rate_limit.interval_ms must be >= 0"))
	}
	kinds := r.ExcludeUpdates[:0]
	for _, v := range r.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		switch kind {
		case "":
			continue
		case UpdateCallback, UpdateMessage, UpdateInlineQuery:
			kinds = append(kinds, kind)
		default:
			errs = append(errs, fmt.Errorf("rate_limit.exclude_updates: unknown update kind %q", v))
		}
	}
	r.ExcludeUpdates = kinds
	return errs
}

func (s SenderConfig) validate() []error {
	var errs []error
	fields := []struct {
		name string
		v    int
	}{
		{"queue_size", s.QueueSize},
		{"workers", s.Workers},
		{"max_retries", s.MaxRetries},
		{"retry_backoff_ms", s.RetryBackoffMS},
	}
	for _, f := range fields {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("sender.%s must be >= 0", f.name))
		}
	}
	return errs
}
