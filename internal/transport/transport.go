// Package transport is the outbound side of the bot: sending, editing and
// deleting messages, sending audio by URL and posting chat actions.
package transport

import (
	"context"
	"errors"

	"github.com/m3rciful/spotdl-bot/core/telegram/keyboard"
)

// ErrNotAttached is returned by Telebot before Attach is called.
var ErrNotAttached = errors.New("transport: bot not attached")

// MessageRef identifies a sent message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the reference points to nothing.
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 || r.MessageID == 0
}

// Message is a text message with an optional inline keyboard. Markdown
// selects MarkdownV2 parsing; the caller escapes the text.
type Message struct {
	Text     string
	Markdown bool
	Keyboard [][]keyboard.InlineBtn
}

// Audio is an audio file referenced by URL. Zero-valued optional fields are
// left out of the request.
type Audio struct {
	URL         string
	Title       string
	Performer   string
	DurationSec int
	ThumbURL    string
}

// Bare strips everything but the URL.
func (a Audio) Bare() Audio {
	return Audio{URL: a.URL}
}

// Transport is the set of outbound calls used by handlers and the download
// orchestrator.
type Transport interface {
	Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, msg Message) error
	Delete(ctx context.Context, ref MessageRef) error
	SendAudio(ctx context.Context, chatID int64, audio Audio) error
	// NotifyUploading posts the upload_audio chat action without waiting.
	NotifyUploading(ctx context.Context, chatID int64)
}
