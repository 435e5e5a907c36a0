package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
	"github.com/m3rciful/spotdl-bot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// BuildPoller returns a webhook listener or a long poller for cfg.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	timeout := defaultLongPollTimeout
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		timeout = time.Duration(s) * time.Second
	}
	return &tele.LongPoller{Timeout: timeout}
}

// logPollerMode logs the chosen mode. A long poller cannot receive updates
// while a webhook is set, so a leftover webhook is removed unless skipCleanup.
func logPollerMode(ctx context.Context, bot *tele.Bot, poller tele.Poller, built time.Duration, skipCleanup bool) {
	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", built),
		)
	case *tele.LongPoller:
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Duration("timeout", p.Timeout),
			slog.Duration("duration", built),
		)
		if skipCleanup {
			return
		}
		if err := bot.RemoveWebhook(false); err != nil {
			logger.TG.LogAttrs(ctx, slog.LevelWarn, "webhook cleanup failed",
				slog.String("event", "delete_webhook"),
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}
}
