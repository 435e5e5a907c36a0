// Package download drives a selected track through resolution, metadata
// lookup and audio delivery, and owns the timed cleanup of the messages it
// posts along the way.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/internal/apperr"
	"github.com/m3rciful/spotdl-bot/internal/composer"
	"github.com/m3rciful/spotdl-bot/internal/session"
	"github.com/m3rciful/spotdl-bot/internal/track"
	"github.com/m3rciful/spotdl-bot/internal/transport"
)

const component = "service.download"

// Defaults applied by New.
const (
	DefaultValidationTTL     = 10 * time.Second
	DefaultProcessingTimeout = 5 * time.Minute
	cleanupTimeout           = 10 * time.Second
)

// User-visible texts.
const (
	TextInvalidURL = "❌ That doesn't look like a Spotify track link.\nSend a link like https://open.spotify.com/track/..."
	TextProcessing = "⏳ Downloading, please wait..."
	TextFailed     = "❌ Sorry, the download failed. Please try again later."
)

// Resolver turns a track URL into a direct audio URL.
type Resolver interface {
	Resolve(ctx context.Context, trackURL string) (string, error)
}

// MetadataFetcher returns display details for a track URL.
type MetadataFetcher interface {
	FetchDetails(ctx context.Context, trackURL string) (composer.Details, error)
}

// MetadataPolicy decides what happens when metadata lookup fails.
type MetadataPolicy string

const (
	// PolicyAbort fails the pipeline.
	PolicyAbort MetadataPolicy = "abort"
	// PolicyDegrade delivers the audio with whatever details are known.
	PolicyDegrade MetadataPolicy = "degrade"
)

// ParsePolicy maps a config value to a policy. Empty selects PolicyAbort.
func ParsePolicy(raw string) (MetadataPolicy, error) {
	switch p := MetadataPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicyDegrade:
		return p, nil
	default:
		return "", fmt.Errorf("download: unknown metadata policy %q", raw)
	}
}

// Options configures New.
type Options struct {
	Resolver          Resolver
	Metadata          MetadataFetcher
	Transport         transport.Transport
	Scheduler         *Scheduler
	Policy            MetadataPolicy
	ValidationTTL     time.Duration
	ProcessingTimeout time.Duration
}

// Orchestrator runs download pipelines. It is safe for concurrent use; each
// pipeline carries its own state machine.
type Orchestrator struct {
	resolver  Resolver
	metadata  MetadataFetcher
	tr        transport.Transport
	sched     *Scheduler
	policy    MetadataPolicy
	validTTL  time.Duration
	watchdogD time.Duration
}

// New validates opts and applies defaults.
func New(opts Options) (*Orchestrator, error) {
	if opts.Resolver == nil || opts.Metadata == nil {
		return nil, errors.New("download: resolver and metadata fetcher are required")
	}
	if opts.Transport == nil {
		return nil, errors.New("download: transport is required")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewScheduler(nil)
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	if opts.ValidationTTL <= 0 {
		opts.ValidationTTL = DefaultValidationTTL
	}
	if opts.ProcessingTimeout <= 0 {
		opts.ProcessingTimeout = DefaultProcessingTimeout
	}
	return &Orchestrator{
		resolver:  opts.Resolver,
		metadata:  opts.Metadata,
		tr:        opts.Transport,
		sched:     opts.Scheduler,
		policy:    opts.Policy,
		validTTL:  opts.ValidationTTL,
		watchdogD: opts.ProcessingTimeout,
	}, nil
}

// Request describes one pipeline run. Machine must already be in
// StateResolving. Hint supplies display details used by PolicyDegrade.
type Request struct {
	ChatID   int64
	TrackURL string
	Machine  *session.Machine
	Hint     composer.Details
}

// Outcome is the final state of a run.
type Outcome struct {
	State    session.State
	Delivery DeliveryResult
	Err      error
}

// Validate checks trackURL before any external call. On failure it posts a
// short-lived notice to chatID and returns a *apperr.ValidationError.
func (o *Orchestrator) Validate(ctx context.Context, chatID int64, trackURL string) error {
	trackURL = strings.TrimSpace(trackURL)
	if track.IsTrackURL(trackURL) {
		return nil
	}
	verr := &apperr.ValidationError{Field: "url", Input: trackURL, Reason: "not a " + track.TrackURLPrefix + " link"}
	logger.Info(ctx, component, "download.invalid_url",
		slog.String("url", logger.SanitizeLimit(trackURL, 128)),
	)
	ref, err := o.tr.Send(ctx, chatID, transport.Message{Text: TextInvalidURL})
	if err != nil {
		logger.Warn(ctx, component, "download.notice_failed", slog.String("err", err.Error()))
		return verr
	}
	o.deleteLater(ctx, ref, o.validTTL, "validation")
	return verr
}

// Download validates trackURL, starts a fresh pipeline and runs it to completion.
func (o *Orchestrator) Download(ctx context.Context, chatID int64, trackURL string) (Outcome, error) {
	trackURL = strings.TrimSpace(trackURL)
	if err := o.Validate(ctx, chatID, trackURL); err != nil {
		return Outcome{State: session.StateIdle, Err: err}, err
	}
	m := session.NewMachine()
	if err := m.Begin(); err != nil {
		return Outcome{State: m.State(), Err: err}, err
	}
	out := o.Run(ctx, Request{ChatID: chatID, TrackURL: trackURL, Machine: m})
	return out, out.Err
}

// Run drives req.Machine from Resolving to Done or Failed. It always returns
// with the machine in a terminal state unless the machine was not in
// Resolving on entry.
func (o *Orchestrator) Run(ctx context.Context, req Request) Outcome {
	m := req.Machine
	if m == nil {
		err := errors.New("download: nil state machine")
		return Outcome{Err: err}
	}
	if st := m.State(); st != session.StateResolving {
		err := fmt.Errorf("%w: run from %s", session.ErrIllegalTransition, st)
		return Outcome{State: st, Err: err}
	}
	if !track.IsTrackURL(req.TrackURL) {
		err := &apperr.ValidationError{Field: "url", Input: req.TrackURL, Reason: "not a track link"}
		m.Fail()
		o.reportFailure(ctx, req.ChatID, transport.MessageRef{}, err)
		return Outcome{State: m.State(), Delivery: DeliveryFailed, Err: err}
	}

	start := time.Now()
	logger.Info(ctx, component, "download.start",
		slog.String("url", req.TrackURL),
		slog.String("policy", string(o.policy)),
	)

	progress, err := o.tr.Send(ctx, req.ChatID, transport.Message{Text: TextProcessing})
	if err != nil {
		logger.Warn(ctx, component, "download.progress_failed", slog.String("err", err.Error()))
	}
	o.tr.NotifyUploading(ctx, req.ChatID)

	var watchdog *Task
	if !progress.IsZero() {
		watchdog = o.deleteLater(ctx, progress, o.watchdogD, "watchdog")
	}
	defer watchdog.Cancel()

	fail := func(err error, result DeliveryResult) Outcome {
		m.Fail()
		logger.Warn(ctx, component, "download.failed",
			slog.String("state", string(m.State())),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
		o.reportFailure(ctx, req.ChatID, progress, err)
		return Outcome{State: m.State(), Delivery: result, Err: err}
	}

	directURL, err := o.resolver.Resolve(ctx, req.TrackURL)
	if err != nil {
		return fail(err, DeliveryFailed)
	}
	if err := m.Advance(session.StateMetadataFetch); err != nil {
		return fail(err, DeliveryFailed)
	}

	details, err := o.metadata.FetchDetails(ctx, req.TrackURL)
	if err != nil {
		if o.policy != PolicyDegrade || ctx.Err() != nil {
			return fail(err, DeliveryFailed)
		}
		logger.Warn(ctx, component, "download.metadata_degraded",
			slog.String("policy", string(o.policy)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		details = req.Hint
	}
	if err := m.Advance(session.StateDelivering); err != nil {
		return fail(err, DeliveryFailed)
	}

	result, err := o.deliver(ctx, req.ChatID, audioFor(directURL, details))
	if result != Delivered {
		return fail(err, result)
	}
	if err := m.Advance(session.StateDone); err != nil {
		return fail(err, DeliveryFailed)
	}

	watchdog.Cancel()
	if !progress.IsZero() {
		if err := o.tr.Delete(ctx, progress); err != nil {
			logger.Debug(ctx, component, "download.cleanup_failed", slog.String("err", err.Error()))
		}
	}
	logger.Info(ctx, component, "download.done",
		slog.String("state", string(m.State())),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
	return Outcome{State: m.State(), Delivery: Delivered}
}

func audioFor(directURL string, d composer.Details) transport.Audio {
	return transport.Audio{
		URL:         directURL,
		Title:       d.Name,
		Performer:   d.Artist,
		DurationSec: d.DurationMS / 1000,
		ThumbURL:    d.ArtworkURL,
	}
}

// reportFailure replaces the progress message with the failure text, or
// sends the text when there is nothing to replace.
func (o *Orchestrator) reportFailure(ctx context.Context, chatID int64, progress transport.MessageRef, cause error) {
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	msg := transport.Message{Text: TextFailed}
	if !progress.IsZero() {
		if err := o.tr.Edit(ctx, progress, msg); err == nil {
			return
		}
	}
	if _, err := o.tr.Send(ctx, chatID, msg); err != nil {
		logger.Error(ctx, component, "download.report_failed",
			slog.String("err", err.Error()),
			slog.String("cause", logger.SanitizeLimit(cause.Error(), 256)),
		)
	}
}

// deleteLater schedules a best-effort deletion of ref after d.
func (o *Orchestrator) deleteLater(ctx context.Context, ref transport.MessageRef, d time.Duration, reason string) *Task {
	base := context.WithoutCancel(ctx)
	return o.sched.Schedule(d, func() {
		cctx, cancel := context.WithTimeout(base, cleanupTimeout)
		defer cancel()
		if err := o.tr.Delete(cctx, ref); err != nil {
			logger.Debug(base, component, "download.cleanup_failed",
				slog.String("reason", reason),
				slog.String("err", err.Error()),
			)
		}
	})
}
