// Package app assembles the bot from its configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/spotdl-bot/core/bootstrap"
	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/core/netutil"
	coretelegram "github.com/m3rciful/spotdl-bot/core/telegram"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"
	"github.com/m3rciful/spotdl-bot/core/telegram/router"
	tgsender "github.com/m3rciful/spotdl-bot/core/telegram/sender"
	"github.com/m3rciful/spotdl-bot/internal/composer"
	"github.com/m3rciful/spotdl-bot/internal/download"
	"github.com/m3rciful/spotdl-bot/internal/handlers"
	"github.com/m3rciful/spotdl-bot/internal/session"
	"github.com/m3rciful/spotdl-bot/internal/track"
	"github.com/m3rciful/spotdl-bot/internal/transport"

	tele "gopkg.in/telebot.v4"
)

// App owns the long-lived components of the bot.
type App struct {
	cfg *Config

	searcher  *track.SpotifySearcher
	store     *session.Store
	scheduler *download.Scheduler
	transport *transport.Telebot
	handlers  *handlers.Handlers
}

// New builds every component. No network calls are made.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	searcher, err := track.NewSpotifySearcher(track.SpotifyOptions{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		Market:       cfg.Spotify.Market,
		HTTPClient:   netutil.NewClient(netutil.ClientOptions{}),
	})
	if err != nil {
		return nil, err
	}

	comp, err := composer.New(composer.Options{
		ResolveURL:  cfg.Composer.ResolveURL,
		MetadataURL: cfg.Composer.MetadataURL,
		Timeout:     seconds(cfg.Composer.TimeoutSeconds),
	})
	if err != nil {
		return nil, err
	}

	store := session.NewStore(session.StoreOptions{
		Capacity: cfg.Session.Capacity,
		TTL:      time.Duration(cfg.Session.TTLMinutes) * time.Minute,
	})
	sched := download.NewScheduler(nil)
	tr := transport.NewTelebot(netutil.NewClient(netutil.ClientOptions{}))

	orch, err := download.New(download.Options{
		Resolver:          comp,
		Metadata:          comp,
		Transport:         tr,
		Scheduler:         sched,
		Policy:            download.MetadataPolicy(cfg.Download.MetadataPolicy),
		ValidationTTL:     seconds(cfg.Download.ValidationTTLSeconds),
		ProcessingTimeout: seconds(cfg.Download.ProcessingTimeoutSeconds),
	})
	if err != nil {
		return nil, err
	}

	h, err := handlers.New(handlers.Options{
		Searcher:     searcher,
		Store:        store,
		Orchestrator: orch,
		Transport:    tr,
		SearchLimit:  cfg.Spotify.SearchLimit,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		searcher:  searcher,
		store:     store,
		scheduler: sched,
		transport: tr,
		handlers:  h,
	}, nil
}

// Bootstrap initializes logging, checks Spotify credentials and builds the app.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	err = bootstrap.Run(ctx, bootstrap.Options{
		Config: &cfg.Config,
		Probes: []bootstrap.Probe{{Name: "spotify", Run: a.searcher.Probe}},
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// TelegramRunOptions wires handlers, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := &a.cfg.Config
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.All(reg, router.Options{
		AdminID:   cfg.Telegram.AdminID,
		Fallbacks: handlers.Fallbacks{},
	})

	onLimited := func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Slow down a little"})
		}
		return tghelpers.SendText(c, "⏳ Too many requests, please slow down.")
	}

	return coretelegram.RunOptions{
		Config:   cfg,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			QueueSize:    cfg.Sender.QueueSize,
			Workers:      cfg.Sender.Workers,
			MaxRetries:   cfg.Sender.MaxRetries,
			RetryBackoff: time.Duration(cfg.Sender.RetryBackoffMS) * time.Millisecond,
		},
		Middlewares: coretelegram.DefaultMiddlewares(cfg, onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.transport.Attach(rt.Bot, rt.Dispatcher)
			if rt.Dispatcher != nil {
				a.handlers.SetSenderErrors(rt.Dispatcher.ErrorCount)
			}
			logger.Info(ctx, "app", "app.wired",
				slog.String("policy", a.cfg.Download.MetadataPolicy),
				slog.Int("sessions", a.cfg.Session.Capacity),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.scheduler.Stop()
			a.transport.Attach(nil, nil)
			logger.Info(ctx, "app", "app.stopped",
				slog.Int("sessions", a.store.Len()),
			)
			return nil
		},
	}, nil
}
