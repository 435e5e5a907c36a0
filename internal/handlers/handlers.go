// Package handlers implements the bot's commands and browser callbacks.
// The exported operations take plain values and are driven by thin telebot
// adapters in telegram.go.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/spotdl-bot/core/buildinfo"
	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/internal/apperr"
	"github.com/m3rciful/spotdl-bot/internal/composer"
	"github.com/m3rciful/spotdl-bot/internal/download"
	"github.com/m3rciful/spotdl-bot/internal/pager"
	"github.com/m3rciful/spotdl-bot/internal/session"
	"github.com/m3rciful/spotdl-bot/internal/track"
	"github.com/m3rciful/spotdl-bot/internal/transport"
)

const component = "service.search"

// User-visible texts.
const (
	TextSearchUsage   = "Send me a song name, or use /search <query>."
	TextDownloadUsage = "Usage: /download https://open.spotify.com/track/<id>"
	TextNoResults     = "No results found. Try another query."
	TextSearchFailed  = "❌ Search is unavailable right now. Please try again later."
	TextExpired       = "This search has expired. Please search again."
	TextBusy          = "⏳ Your download is already in progress."
	TextStarting      = "⏳ Starting download..."
	TextUnsupported   = "Unsupported action"
)

// Options wires New.
type Options struct {
	Searcher     track.Searcher
	Store        *session.Store
	Orchestrator *download.Orchestrator
	Transport    transport.Transport
	SearchLimit  int
}

// Handlers holds the dependencies shared by all bot handlers.
type Handlers struct {
	searcher track.Searcher
	store    *session.Store
	orch     *download.Orchestrator
	tr       transport.Transport
	limit    int

	startedAt    time.Time
	senderErrors func() uint64
}

// New validates opts.
func New(opts Options) (*Handlers, error) {
	switch {
	case opts.Searcher == nil:
		return nil, errors.New("handlers: searcher is required")
	case opts.Store == nil:
		return nil, errors.New("handlers: session store is required")
	case opts.Orchestrator == nil:
		return nil, errors.New("handlers: orchestrator is required")
	case opts.Transport == nil:
		return nil, errors.New("handlers: transport is required")
	}
	limit := opts.SearchLimit
	if limit <= 0 || limit > track.MaxResults {
		limit = track.MaxResults
	}
	return &Handlers{
		searcher:  opts.Searcher,
		store:     opts.Store,
		orch:      opts.Orchestrator,
		tr:        opts.Transport,
		limit:     limit,
		startedAt: time.Now(),
	}, nil
}

// SetSenderErrors installs the source of the outbound error counter shown by /stats.
func (h *Handlers) SetSenderErrors(fn func() uint64) {
	h.senderErrors = fn
}

// HasSession reports whether userID has a live session.
func (h *Handlers) HasSession(userID int64) bool {
	_, ok := h.store.Get(userID)
	return ok
}

// Search runs query and opens a new browser for userID in chatID. An empty
// result creates no session.
func (h *Handlers) Search(ctx context.Context, chatID, userID int64, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		_, err := h.tr.Send(ctx, chatID, transport.Message{Text: TextSearchUsage})
		return err
	}

	start := time.Now()
	results, err := h.searcher.Search(ctx, query, h.limit)
	if err != nil {
		logger.Warn(ctx, component, "search.failed",
			slog.String("query", logger.SanitizeLimit(query, 128)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		if _, sendErr := h.tr.Send(ctx, chatID, transport.Message{Text: TextSearchFailed}); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
	logger.Info(ctx, component, "search.done",
		slog.String("query", logger.SanitizeLimit(query, 128)),
		slog.Int("tracks", len(results)),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)

	if len(results) == 0 {
		_, err := h.tr.Send(ctx, chatID, transport.Message{Text: TextNoResults})
		return err
	}

	sess, err := session.New(results)
	if err != nil {
		return err
	}
	h.store.Put(userID, sess)
	sent, err := h.tr.Send(ctx, chatID, pageMessage(sess.Snapshot()))
	if err != nil {
		return err
	}
	sess.Bind(sent.MessageID)
	return nil
}

// Reply is what a browser press produces: an optional callback answer and,
// for a successful select, the pipeline to run next.
type Reply struct {
	Ack      string
	Download *download.Request
}

// Press applies a browser button press from userID on the message at ref.
// index is the cursor the pressed page was rendered for. Presses on any
// message other than the user's current browser are expired.
func (h *Handlers) Press(ctx context.Context, userID int64, ref transport.MessageRef, action pager.Action, index int) (Reply, error) {
	sess, ok := h.store.Get(userID)
	if !ok || !sess.Owns(ref.MessageID) {
		return Reply{Ack: TextExpired}, apperr.ErrSessionExpired
	}
	logger.Debug(ctx, component, "browser.press",
		slog.String("op", action.String()),
		slog.Int("cursor", index),
	)

	switch action {
	case pager.ActionProcessing:
		return Reply{Ack: TextBusy}, nil
	case pager.ActionForward, pager.ActionBackward:
		snap, moved, err := sess.Move(index, action)
		switch {
		case err != nil:
			return Reply{Ack: TextExpired}, apperr.ErrSessionExpired
		case !moved:
			return Reply{Ack: TextBusy}, apperr.ErrSessionLocked
		case snap.Cursor == index:
			return Reply{}, nil
		}
		return Reply{}, h.tr.Edit(ctx, ref, pageMessage(snap))
	case pager.ActionSelect:
		return h.selectTrack(ctx, sess, ref, index)
	default:
		return Reply{Ack: TextUnsupported}, fmt.Errorf("handlers: unexpected action %s", action)
	}
}

func (h *Handlers) selectTrack(ctx context.Context, sess *session.Session, ref transport.MessageRef, index int) (Reply, error) {
	if sess.Locked() {
		return Reply{Ack: TextBusy}, apperr.ErrSessionLocked
	}
	shown, err := sess.TrackAt(index)
	if err != nil {
		return Reply{Ack: TextExpired}, apperr.ErrSessionExpired
	}
	if err := h.orch.Validate(ctx, ref.ChatID, shown.URL); err != nil {
		return Reply{}, err
	}

	t, err := sess.Select(index)
	if err != nil {
		if errors.Is(err, session.ErrIllegalTransition) {
			return Reply{Ack: TextBusy}, apperr.ErrSessionLocked
		}
		return Reply{}, err
	}
	if err := h.tr.Edit(ctx, ref, pageMessage(sess.Snapshot())); err != nil {
		logger.Warn(ctx, component, "browser.lock_render_failed", slog.String("err", err.Error()))
	}
	logger.Info(ctx, component, "browser.select",
		slog.String("track_id", t.ID),
		slog.String("state", string(sess.Pipeline().State())),
	)
	return Reply{
		Ack: TextStarting,
		Download: &download.Request{
			ChatID:   ref.ChatID,
			TrackURL: t.URL,
			Machine:  sess.Pipeline(),
			Hint: composer.Details{
				Name:       t.Name,
				Artist:     t.Artist,
				DurationMS: t.DurationMS,
				ArtworkURL: t.Thumbnail(),
			},
		},
	}, nil
}

// RunDownload executes a pipeline produced by Press.
func (h *Handlers) RunDownload(ctx context.Context, req download.Request) error {
	return h.orch.Run(ctx, req).Err
}

// Download handles /download <url>.
func (h *Handlers) Download(ctx context.Context, chatID int64, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		_, err := h.tr.Send(ctx, chatID, transport.Message{Text: TextDownloadUsage})
		return err
	}
	_, err := h.orch.Download(ctx, chatID, rawURL)
	return err
}

// Stats renders the admin diagnostics text.
func (h *Handlers) Stats() string {
	var errs uint64
	if h.senderErrors != nil {
		errs = h.senderErrors()
	}
	return fmt.Sprintf("Sessions: %d\nSender errors: %d\nUptime: %s\nBuild: %s",
		h.store.Len(), errs, time.Since(h.startedAt).Round(time.Second), buildinfo.Summary())
}
