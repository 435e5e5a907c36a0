// Package cmd is the process entry point shared by bots built on core.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
	"github.com/m3rciful/spotdl-bot/core/logger"
	coretelegram "github.com/m3rciful/spotdl-bot/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier is a bot config that embeds the core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the options the Telegram runtime starts with.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options configure Run. LoadConfig and Bootstrap are required; the rest
// default to the real environment, logger and runtime.
type Options struct {
	// ConfigEnvVar names the variable holding the config path. Defaults to CONFIG_PATH.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	// Bootstrap receives the signal-aware context so startup probes stop on SIGTERM.
	Bootstrap func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	Getenv         func(string) string
	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Context replaces the signal context. Tests use it.
	Context context.Context
}

func (o *Options) withDefaults() error {
	if o.LoadConfig == nil || o.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	if o.ConfigEnvVar == "" {
		o.ConfigEnvVar = defaultConfigEnv
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.ShutdownLogger == nil {
		o.ShutdownLogger = logger.Shutdown
	}
	if o.RunTelegram == nil {
		o.RunTelegram = coretelegram.RunTelegram
	}
	return nil
}

func (o *Options) configPath() (string, error) {
	if p := o.Getenv(o.ConfigEnvVar); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: set %s or a default config path", o.ConfigEnvVar)
}

// Run loads the config, bootstraps the app and serves Telegram updates until
// SIGINT or SIGTERM.
func Run(opts Options) error {
	if err := opts.withDefaults(); err != nil {
		return err
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	ctx := opts.Context
	if ctx == nil {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: config carries no core section")
	}

	defer func() {
		if serr := opts.ShutdownLogger(); serr != nil {
			log.Printf("logger shutdown: %v", serr)
		}
	}()

	startedAt := time.Now()
	app, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	announceLifecycle(&runOpts, startedAt)
	return opts.RunTelegram(ctx, runOpts)
}

// announceLifecycle logs ready after the app's OnStart hook and shutdown
// before its OnStop hook.
func announceLifecycle(ro *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := ro.OnStart, ro.OnStop
	ro.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup", time.Since(startedAt)))
		return nil
	}
	ro.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}
