package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
	coretelegram "github.com/m3rciful/spotdl-bot/core/telegram"
)

type fakeConfig struct{ core *coreconfig.Config }

func (f fakeConfig) CoreConfig() *coreconfig.Config { return f.core }

type fakeApp struct {
	started bool
	stopped bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started = true; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { a.stopped = true; return nil },
	}, nil
}

func TestRunPrefersEnvPathAndWrapsHooks(t *testing.T) {
	app := &fakeApp{}
	var loaded string
	var shutdown bool
	err := Run(Options{
		DefaultConfigPath: "default.yaml",
		Getenv: func(name string) string {
			if name == defaultConfigEnv {
				return "env.yaml"
			}
			return ""
		},
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return fakeConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error {
			shutdown = true
			return nil
		},
		RunTelegram: func(ctx context.Context, ro coretelegram.RunOptions) error {
			if err := ro.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return ro.OnStop(ctx, coretelegram.Runtime{})
		},
		Context: context.Background(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if loaded != "env.yaml" {
		t.Fatalf("loaded %q, want env.yaml", loaded)
	}
	if !app.started || !app.stopped || !shutdown {
		t.Fatalf("started=%v stopped=%v shutdown=%v", app.started, app.stopped, shutdown)
	}
}

func TestRunFailsWithoutCoreConfig(t *testing.T) {
	err := Run(Options{
		DefaultConfigPath: "x.yaml",
		Getenv:            func(string) string { return "" },
		LoadConfig:        func(string) (ConfigCarrier, error) { return fakeConfig{}, nil },
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			t.Fatal("bootstrap must not run")
			return nil, nil
		},
		Context: context.Background(),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		DefaultConfigPath: "x.yaml",
		Getenv:            func(string) string { return "" },
		LoadConfig: func(string) (ConfigCarrier, error) {
			return fakeConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom },
		ShutdownLogger: func() error { return nil },
		Context:        context.Background(),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRunRequiresConfigPath(t *testing.T) {
	err := Run(Options{
		Getenv:     func(string) string { return "" },
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
