package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/spotdl-bot/core/telegram/format"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"
	"github.com/m3rciful/spotdl-bot/core/telegram/keyboard"
	"github.com/m3rciful/spotdl-bot/internal/pager"
	"github.com/m3rciful/spotdl-bot/internal/session"
	"github.com/m3rciful/spotdl-bot/internal/track"
	"github.com/m3rciful/spotdl-bot/internal/transport"
)

// PagerUnique is the telebot unique of every browser button.
const PagerUnique = "pg"

// RenderTrack formats t as a MarkdownV2 detail view.
func RenderTrack(t track.Track) string {
	var b strings.Builder
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "*%s:* %s\n", format.EscapeV2(label), format.EscapeV2(value))
	}
	line("🎵 Song", t.Name)
	line("👤 Artist", t.Artist)
	line("💿 Album", t.Album)
	if t.DurationMS > 0 {
		line("⏱ Duration", FormatDuration(t.Duration()))
	}
	line("📅 Released", tghelpers.FormatReleaseDate(t.ReleaseDate, t.ReleaseDatePrecision))
	return strings.TrimRight(b.String(), "\n")
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Keyboard converts a pager layout into inline buttons. The payload is
// "<action>:<index>".
func Keyboard(layout pager.Layout) [][]keyboard.InlineBtn {
	rows := make([][]keyboard.InlineBtn, 0, len(layout))
	for _, row := range layout {
		out := make([]keyboard.InlineBtn, 0, len(row))
		for _, btn := range row {
			out = append(out, keyboard.InlineBtn{
				Text:   btn.Label,
				Unique: PagerUnique,
				Data:   fmt.Sprintf("%s:%d", btn.Action, btn.Index),
			})
		}
		rows = append(rows, out)
	}
	return rows
}

// pageMessage renders a session snapshot with its keyboard.
func pageMessage(snap session.Snapshot) transport.Message {
	return transport.Message{
		Text:     RenderTrack(snap.Track),
		Markdown: true,
		Keyboard: Keyboard(pager.Keyboard(snap.Total, snap.Cursor, snap.Locked)),
	}
}
