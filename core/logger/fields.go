package logger

import (
	"regexp"
	"strings"
)

// Level names as printed in the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Closed vocabularies. A value outside its set is dropped for delivery and
// outcome, and kept lowercased for status.
var enums = map[string]map[string]bool{
	"status":   {"ok": true, "fail": true, "skip": true, "retry": true, "rate_limited": true, "cancelled": true},
	"delivery": {"rich": true, "bare": true, "failed": true},
	"outcome":  {"ok": true, "fail": true, "cancelled": true, "rate_limited": true},
	"state":    {"idle": true, "resolving": true, "metadata": true, "delivering": true, "done": true, "failed": true},
}

var dropUnknown = map[string]bool{"delivery": true, "outcome": true}

// Keys whose values never reach the output.
var secretKeys = map[string]bool{
	"token":         true,
	"bot_token":     true,
	"client_secret": true,
	"authorization": true,
}

var botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// defaultKeyOrder puts the envelope first and groups the bot's own fields
// (search, session, download) after it. Unlisted keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status", "rid",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"cb_key", "payload", "outcome", "duration_ms",
	"messages", "kb", "mode", "listen", "public_url",
	"service", "op", "http_code",
	"query", "results", "sessions", "cursor", "action",
	"state", "track_url", "attempt", "delivery", "policy",
	"err", "err_code", "cause", "attempts",
}

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "", "info":
		return LevelInfo
	}
	return strings.ToUpper(level)
}

// normalizeEnum returns the canonical value for key and whether to keep it.
func normalizeEnum(key, value string) (string, bool) {
	allowed, ok := enums[key]
	if !ok {
		return value, true
	}
	v := strings.ToLower(strings.TrimSpace(value))
	if allowed[v] {
		return v, true
	}
	return v, !dropUnknown[key] && v != ""
}

func redact(key, value string) string {
	if secretKeys[strings.ToLower(key)] && value != "" {
		return "<redacted>"
	}
	return botTokenRe.ReplaceAllString(value, "bot<redacted>")
}
