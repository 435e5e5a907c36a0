package handlers

import (
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"

	tg "github.com/m3rciful/spotdl-bot/core/telegram"
	"github.com/m3rciful/spotdl-bot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/spotdl-bot/core/telegram/helpers"
	"github.com/m3rciful/spotdl-bot/core/telegram/middleware"
	"github.com/m3rciful/spotdl-bot/core/telegram/router"
	"github.com/m3rciful/spotdl-bot/internal/apperr"
	"github.com/m3rciful/spotdl-bot/internal/pager"
	"github.com/m3rciful/spotdl-bot/internal/transport"

	tele "gopkg.in/telebot.v4"
)

const helpText = `🎧 Spotify track downloader

/search <query> (or /s) finds tracks; any plain message works too.
Browse the results with ⬅️ ➡️ and tap the counter to download.

/download <link> (or /dl) downloads https://open.spotify.com/track/... directly.`

// Register binds commands, the browser callback and the text fallback.
func (h *Handlers) Register(reg *tg.Registry) error {
	commands := []struct {
		name string
		cmd  tg.Command
	}{
		{"/start", tg.Command{Handler: h.onHelp, Description: "Start the bot", Hidden: true}},
		{"/help", tg.Command{Handler: h.onHelp, Description: "How to use the bot"}},
		{"/search", tg.Command{Handler: h.onSearch, Description: "Search Spotify tracks", Aliases: []string{"s"}}},
		{"/download", tg.Command{Handler: h.onDownload, Description: "Download a Spotify track link", Aliases: []string{"dl"}}},
		{"/stats", tg.Command{Handler: h.onStats, Description: "Bot diagnostics", AdminOnly: true, Hidden: true}},
	}
	var result *multierror.Error
	for _, c := range commands {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			result = multierror.Append(result, err)
		}
	}
	reg.SetTextFallback(h.onText)

	guard := middleware.RequireSession(h, h.onExpired)
	if err := reg.RegisterCallback(PagerUnique, guard(h.onPage)); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (h *Handlers) onHelp(c tele.Context) error {
	return tghelpers.SendText(c, helpText)
}

func (h *Handlers) onSearch(c tele.Context) error {
	return h.Search(tghelpers.BuildContext(c), c.Chat().ID, c.Sender().ID, commandArgs(c))
}

func (h *Handlers) onText(c tele.Context) error {
	return h.Search(tghelpers.BuildContext(c), c.Chat().ID, c.Sender().ID, c.Text())
}

func (h *Handlers) onDownload(c tele.Context) error {
	return h.Download(tghelpers.BuildContext(c), c.Chat().ID, commandArgs(c))
}

func (h *Handlers) onStats(c tele.Context) error {
	return tghelpers.SendText(c, h.Stats())
}

func (h *Handlers) onExpired(c tele.Context) error {
	_ = c.Respond(&tele.CallbackResponse{Text: TextExpired})
	return apperr.ErrSessionExpired
}

func (h *Handlers) onPage(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	name, index, err := callbacks.From(c).NameIndex()
	if err != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: TextUnsupported})
		return err
	}
	action, err := pager.ParseAction(name)
	if err != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: TextUnsupported})
		return err
	}

	msg := c.Callback().Message
	if msg == nil {
		_ = c.Respond(&tele.CallbackResponse{Text: TextExpired})
		return apperr.ErrSessionExpired
	}
	ref := transport.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}

	reply, err := h.Press(ctx, c.Sender().ID, ref, action, index)
	_ = c.Respond(&tele.CallbackResponse{Text: reply.Ack})
	if err != nil || reply.Download == nil {
		return err
	}
	return h.RunDownload(ctx, *reply.Download)
}

// commandArgs returns the text after the command word, preferring the
// payload telebot already split off.
func commandArgs(c tele.Context) string {
	if m := c.Message(); m != nil && m.Payload != "" {
		return strings.TrimSpace(m.Payload)
	}
	return CommandArgs(c.Text())
}

// CommandArgs strips the leading /command[@bot] word from text.
func CommandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// Fallbacks answers updates that no route claims.
type Fallbacks struct{}

var _ router.Fallbacks = Fallbacks{}

// UnknownText answers unknown slash commands.
func (Fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "Unknown command. See /help.")
	}
}

// UnknownDocument answers files, which the bot does not accept.
func (Fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, TextSearchUsage)
	}
}

// UnknownCallback answers callbacks without a registered handler.
func (Fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: TextUnsupported})
	}
}
