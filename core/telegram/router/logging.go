package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/spotdl-bot/core/logger"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"
	"github.com/m3rciful/spotdl-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handleWithSummary runs fn under handlerName and logs one summary line.
func handleWithSummary(c tele.Context, handlerName string, start time.Time, status, outcome string, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	logHandlerSummary(c, handlerName, start, status, outcome, err, extras...)
	return err
}

// logHandlerSummary writes the handler.handled line. Empty status and
// outcome are derived from err.
func logHandlerSummary(c tele.Context, handlerName string, start time.Time, status, outcome string, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, handlerName)
	derived := "ok"
	if err != nil {
		derived = "fail"
	}
	if status == "" {
		status = derived
	}
	if outcome == "" {
		outcome = derived
	}
	msgs, kb := middleware.GetCounters(c)

	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(start)),
	}, extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode returns the Code() of the first error in the chain that has one.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	if errors.Is(err, context.Canceled) {
		return "CANCELED"
	}
	return "INTERNAL"
}
