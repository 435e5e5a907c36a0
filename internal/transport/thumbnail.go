package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/m3rciful/spotdl-bot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// MaxThumbBytes is the Bot API limit for audio thumbnails.
const MaxThumbBytes = 200 << 10

// thumbnail downloads rawURL as an upload for the thumbnail field. Telegram
// accepts JPEG only.
func (t *Telebot) thumbnail(ctx context.Context, rawURL string) *tele.Photo {
	data, err := t.fetchThumb(ctx, rawURL)
	if err != nil {
		logger.Debug(ctx, "tg.transport", "audio.thumb_skipped",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return nil
	}
	return &tele.Photo{File: tele.FromReader(bytes.NewReader(data))}
}

func (t *Telebot) fetchThumb(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.thumb.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail: status %d", resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "image/jpeg" {
		return nil, fmt.Errorf("thumbnail: content type %q is not image/jpeg", mt)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxThumbBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxThumbBytes {
		return nil, fmt.Errorf("thumbnail: larger than %d bytes", MaxThumbBytes)
	}
	return data, nil
}
