package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/core/netutil"
	"github.com/m3rciful/spotdl-bot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/spotdl-bot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type attachment struct {
	bot  *tele.Bot
	disp *tgsender.Dispatcher
}

// Telebot implements Transport on top of a telebot bot. It is constructed
// before the bot exists and becomes usable after Attach.
type Telebot struct {
	cur   atomic.Pointer[attachment]
	thumb *http.Client
}

// NewTelebot returns a detached transport. hc downloads audio thumbnails;
// nil uses a default retrying client.
func NewTelebot(hc *http.Client) *Telebot {
	if hc == nil {
		hc = netutil.NewClient(netutil.ClientOptions{})
	}
	return &Telebot{thumb: hc}
}

// Attach binds the bot and the optional outbound dispatcher.
func (t *Telebot) Attach(bot *tele.Bot, disp *tgsender.Dispatcher) {
	if bot == nil {
		t.cur.Store(nil)
		return
	}
	t.cur.Store(&attachment{bot: bot, disp: disp})
}

func (t *Telebot) get() (*attachment, error) {
	a := t.cur.Load()
	if a == nil {
		return nil, ErrNotAttached
	}
	return a, nil
}

// Send posts a new text message.
func (t *Telebot) Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error) {
	a, err := t.get()
	if err != nil {
		return MessageRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	sent, err := a.bot.Send(tele.ChatID(chatID), msg.Text, sendOptions(msg))
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: chatID, MessageID: sent.ID}, nil
}

// Edit replaces the text and keyboard of ref. Unchanged content is not an error.
func (t *Telebot) Edit(ctx context.Context, ref MessageRef, msg Message) error {
	a, err := t.get()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = a.bot.Edit(stored(ref), msg.Text, sendOptions(msg))
	if isNotModified(err) {
		return nil
	}
	return err
}

// Delete removes ref.
func (t *Telebot) Delete(ctx context.Context, ref MessageRef) error {
	a, err := t.get()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.Delete(stored(ref))
}

// SendAudio sends audio by URL reference; Telegram fetches the file itself.
// The Bot API takes thumbnails only as uploads, so ThumbURL is downloaded
// and attached. A thumbnail that cannot be fetched is left out.
func (t *Telebot) SendAudio(ctx context.Context, chatID int64, audio Audio) error {
	a, err := t.get()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	file := &tele.Audio{
		File:      tele.FromURL(audio.URL),
		Title:     audio.Title,
		Performer: audio.Performer,
		Duration:  audio.DurationSec,
	}
	if audio.ThumbURL != "" {
		file.Thumbnail = t.thumbnail(ctx, audio.ThumbURL)
	}
	_, err = a.bot.Send(tele.ChatID(chatID), file)
	return err
}

// NotifyUploading enqueues the upload_audio chat action on the dispatcher,
// or sends it inline when no dispatcher is attached. Failures are logged only.
func (t *Telebot) NotifyUploading(ctx context.Context, chatID int64) {
	a, err := t.get()
	if err != nil {
		return
	}
	run := func() error {
		return a.bot.Notify(tele.ChatID(chatID), tele.UploadingAudio)
	}
	if a.disp != nil {
		if err := a.disp.Enqueue(ctx, "notify.upload_audio", "sendChatAction", run); err == nil {
			return
		} else if !errors.Is(err, tgsender.ErrQueueFull) && !errors.Is(err, tgsender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "notify.enqueue_failed", slog.String("err", err.Error()))
			return
		}
	}
	if err := run(); err != nil {
		logger.Debug(ctx, "tg.sender", "notify.fail",
			slog.Int64("chat_id", chatID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

func sendOptions(msg Message) *tele.SendOptions {
	opts := &tele.SendOptions{DisableWebPagePreview: true}
	if msg.Markdown {
		opts.ParseMode = tele.ModeMarkdownV2
	}
	if len(msg.Keyboard) > 0 {
		opts.ReplyMarkup = keyboard.InlineButtonsRows(msg.Keyboard...)
	} else {
		opts.ReplyMarkup = &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{}}
	}
	return opts
}

func stored(ref MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
