package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
	"github.com/m3rciful/spotdl-bot/core/logger"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"
	tgsender "github.com/m3rciful/spotdl-bot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware is a named global middleware registered with bot.Use.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint (command string or tele.On* constant).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks once the bot is built.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, wires middlewares and routes, and serves
// updates until ctx is cancelled. Cancellation is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	poller := BuildPoller(cfg)
	started := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(),
		OnError: logHandlerError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logPollerMode(ctx, bot, poller, time.Since(started), opts.DisableWebhookCleanup)

	disp := opts.Dispatcher
	if disp == nil {
		disp = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(disp)
	}
	release := func() {
		disp.Close()
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(bot, reg)

	rt := Runtime{Bot: bot, Dispatcher: disp, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-stopped
		if !errors.Is(ctx.Err(), context.Canceled) {
			runErr = ctx.Err()
		}
	case <-stopped:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	release()
	return errors.Join(stopErr, runErr)
}

// logHandlerError receives errors that reach telebot. Handler errors were
// already logged by the routers with their summary line; errors without an
// update come from the poller itself.
func logHandlerError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx, level := context.Background(), slog.LevelError
	if c != nil {
		ctx, level = tghelpers.BuildContext(c), slog.LevelDebug
	}
	logger.TG.LogAttrs(ctx, level, "handler error",
		slog.String("event", "handler.error"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
