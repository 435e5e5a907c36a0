package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
	"github.com/m3rciful/spotdl-bot/internal/download"
	"github.com/m3rciful/spotdl-bot/internal/session"
	"github.com/m3rciful/spotdl-bot/internal/track"
)

// SpotifyConfig holds Web API credentials for track search.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" envconfig:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"SPOTIFY_CLIENT_SECRET"`
	SearchLimit  int    `yaml:"search_limit" envconfig:"SPOTIFY_SEARCH_LIMIT"`
	Market       string `yaml:"market" envconfig:"SPOTIFY_MARKET"`
}

// ComposerConfig points at the resolver and metadata endpoints.
type ComposerConfig struct {
	ResolveURL     string `yaml:"resolve_url" envconfig:"COMPOSER_RESOLVE_URL"`
	MetadataURL    string `yaml:"metadata_url" envconfig:"COMPOSER_METADATA_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"COMPOSER_TIMEOUT_SECONDS"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	Capacity   int `yaml:"capacity"`
	TTLMinutes int `yaml:"ttl_minutes"`
}

// DownloadConfig tunes the download pipeline.
type DownloadConfig struct {
	// MetadataPolicy is "abort" (default) or "degrade".
	MetadataPolicy           string `yaml:"metadata_policy" envconfig:"DOWNLOAD_METADATA_POLICY"`
	ValidationTTLSeconds     int    `yaml:"validation_ttl_seconds"`
	ProcessingTimeoutSeconds int    `yaml:"processing_timeout_seconds"`
}

// Config is the full bot configuration: the reusable core plus bot sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Spotify  SpotifyConfig  `yaml:"spotify"`
	Composer ComposerConfig `yaml:"composer"`
	Session  SessionConfig  `yaml:"session"`
	Download DownloadConfig `yaml:"download"`
}

// CoreConfig implements the runner's ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, overlays the environment and validates every section.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Spotify.ClientID) == "" || strings.TrimSpace(c.Spotify.ClientSecret) == "" {
		return fmt.Errorf("spotify.client_id and spotify.client_secret are required")
	}
	if c.Spotify.SearchLimit <= 0 || c.Spotify.SearchLimit > track.MaxResults {
		c.Spotify.SearchLimit = track.MaxResults
	}

	if strings.TrimSpace(c.Composer.ResolveURL) == "" {
		return fmt.Errorf("composer.resolve_url is required")
	}
	if strings.TrimSpace(c.Composer.MetadataURL) == "" {
		return fmt.Errorf("composer.metadata_url is required")
	}
	if c.Composer.TimeoutSeconds <= 0 {
		c.Composer.TimeoutSeconds = 30
	}

	if c.Session.Capacity <= 0 {
		c.Session.Capacity = session.DefaultCapacity
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = int(session.DefaultTTL / time.Minute)
	}

	policy, err := download.ParsePolicy(c.Download.MetadataPolicy)
	if err != nil {
		return fmt.Errorf("invalid download.metadata_policy %q; allowed: abort, degrade", c.Download.MetadataPolicy)
	}
	c.Download.MetadataPolicy = string(policy)
	if c.Download.ValidationTTLSeconds <= 0 {
		c.Download.ValidationTTLSeconds = int(download.DefaultValidationTTL / time.Second)
	}
	if c.Download.ProcessingTimeoutSeconds <= 0 {
		c.Download.ProcessingTimeoutSeconds = int(download.DefaultProcessingTimeout / time.Second)
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
