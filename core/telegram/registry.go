package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/spotdl-bot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command with its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin.
	AdminOnly bool
	// Hidden commands are left out of the Telegram menu.
	Hidden bool
	// Aliases are alternative names, with or without the leading slash.
	Aliases []string
}

// Registry holds the bot's commands, callback handlers and fallbacks.
// Commands are registered during wiring; callbacks may be looked up
// concurrently.
type Registry struct {
	commands map[string]Command
	aliases  map[string]string

	mu               sync.RWMutex
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback fallback
// just answers the query.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

func slashed(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// RegisterCommand adds cmd under name and its aliases. Names are
// case-insensitive and must not collide with an existing name or alias.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	key := slashed(name)
	if len(key) < 2 || cmd.Handler == nil || cmd.Description == "" {
		return fmt.Errorf("telegram: invalid command %q", name)
	}
	names := []string{key}
	for _, a := range cmd.Aliases {
		names = append(names, slashed(a))
	}
	for _, n := range names {
		if _, _, taken := r.LookupCommand(n); taken {
			return fmt.Errorf("telegram: command %q already registered", n)
		}
	}
	r.commands[key] = cmd
	for _, n := range names[1:] {
		r.aliases[n] = key
	}
	return nil
}

// LookupCommand resolves a command name or alias to its canonical name.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	key := slashed(name)
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	cmd, ok := r.commands[key]
	if !ok {
		return "", Command{}, false
	}
	return key, cmd, true
}

// Commands returns a copy of the registered commands keyed by canonical name.
func (r *Registry) Commands() map[string]Command {
	out := make(map[string]Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// ListCommands returns the menu entries sorted by name. With visibleOnly,
// hidden and admin-only commands are skipped.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback maps a callback unique key to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return fmt.Errorf("telegram: invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return fmt.Errorf("telegram: callback %q already registered", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for plain text that is not a command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// SetupCommands publishes the visible command menu. Failure is logged only.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	visible := reg.ListCommands(true)
	ctx := context.Background()
	if err := bot.SetCommands(visible); err != nil {
		logger.TWire.LogAttrs(ctx, slog.LevelError, "set commands failed",
			slog.String("event", "commands.menu"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	names := make([]string, 0, len(visible))
	for _, cmd := range visible {
		names = append(names, cmd.Text)
	}
	summary, truncated := logger.SummarizeStrings(names, 8)
	logger.TWire.LogAttrs(ctx, slog.LevelInfo, "commands menu set",
		slog.String("event", "commands.menu"),
		slog.String("status", "ok"),
		slog.Int("count", len(visible)),
		slog.String("names", summary),
		slog.Bool("truncated", truncated),
	)
}
