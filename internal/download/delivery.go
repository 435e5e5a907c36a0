package download

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/internal/apperr"
	"github.com/m3rciful/spotdl-bot/internal/transport"
)

// DeliveryResult is the outcome of one delivery attempt.
type DeliveryResult int

const (
	// Delivered means Telegram accepted the audio.
	Delivered DeliveryResult = iota
	// NeedsRetry means the rich attempt failed and a bare attempt is due.
	NeedsRetry
	// DeliveryFailed means no further attempt will be made.
	DeliveryFailed
)

func (r DeliveryResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case NeedsRetry:
		return "needs_retry"
	default:
		return "failed"
	}
}

// Attempt names used in logs and DeliveryError.
const (
	AttemptRich = "rich"
	AttemptBare = "bare"
)

// classify maps a send error to a result for the given attempt. Only the
// rich attempt earns a retry, and a cancelled context never does.
func classify(ctx context.Context, attempt string, err error) DeliveryResult {
	switch {
	case err == nil:
		return Delivered
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return DeliveryFailed
	case attempt == AttemptRich:
		return NeedsRetry
	default:
		return DeliveryFailed
	}
}

// deliver sends audio with full details, then once more with the URL only.
func (o *Orchestrator) deliver(ctx context.Context, chatID int64, audio transport.Audio) (DeliveryResult, error) {
	err := o.tr.SendAudio(ctx, chatID, audio)
	result := classify(ctx, AttemptRich, err)
	o.logAttempt(ctx, AttemptRich, result, err)
	if result != NeedsRetry {
		if err != nil {
			return result, &apperr.DeliveryError{Attempt: AttemptRich, Err: err}
		}
		return result, nil
	}

	err = o.tr.SendAudio(ctx, chatID, audio.Bare())
	result = classify(ctx, AttemptBare, err)
	o.logAttempt(ctx, AttemptBare, result, err)
	if err != nil {
		return result, &apperr.DeliveryError{Attempt: AttemptBare, Err: err}
	}
	return result, nil
}

func (o *Orchestrator) logAttempt(ctx context.Context, attempt string, result DeliveryResult, err error) {
	delivery := attempt
	if result != Delivered {
		delivery = "failed"
	}
	attrs := []slog.Attr{
		slog.String("attempt", attempt),
		slog.String("delivery", delivery),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, component, "download.deliver."+result.String(), attrs...)
		return
	}
	logger.Info(ctx, component, "download.deliver.delivered", attrs...)
}
