package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// lineWriter receives one encoded line per record.
type lineWriter interface {
	Write(p []byte) error
}

type handlerConfig struct {
	level    slog.Leveler
	writer   lineWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as flat key/value lines with a stable
// key order. Groups are flattened into dotted keys.
type structuredHandler struct {
	cfg    handlerConfig
	rank   map[string]int
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = defaultKeyOrder
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, prefixed(h.prefix, a))
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	rec := record{}
	rec.set("ts", r.Time.UTC().Truncate(time.Millisecond).Format(timeLayout))
	rec.set("level", normalizeLevel(r.Level.String()))
	for _, a := range h.attrs {
		rec.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.add(h.prefix, a)
		return true
	})
	rec.fillFromContext(ctx)
	if rec.str("event") == "" {
		rec.set("event", firstNonEmpty(r.Message, "unknown"))
	}
	if rec.str("component") == "" {
		rec.set("component", "app")
	}

	var line []byte
	var err error
	keys := h.sortedKeys(rec)
	if h.cfg.format == formatJSON {
		line, err = encodeJSON(rec, keys)
	} else {
		line = encodeKV(rec, keys)
	}
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) sortedKeys(rec record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := h.rank[keys[i]]
		rj, jok := h.rank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
	return keys
}

// record holds the flattened fields of one log line. Empty strings and nil
// values are never stored.
type record map[string]any

func (rec record) set(key string, v any) {
	if key == "" {
		return
	}
	switch x := v.(type) {
	case nil:
		return
	case string:
		x = redact(key, strings.TrimSpace(x))
		val, keep := normalizeEnum(key, x)
		if !keep || val == "" {
			delete(rec, key)
			return
		}
		v = val
	}
	rec[key] = v
}

func (rec record) str(key string) string {
	s, _ := rec[key].(string)
	return s
}

func (rec record) add(prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			rec.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	switch a.Value.Kind() {
	case slog.KindString:
		rec.set(key, a.Value.String())
	case slog.KindBool:
		rec.set(key, a.Value.Bool())
	case slog.KindInt64:
		rec.set(key, a.Value.Int64())
	case slog.KindUint64:
		rec.set(key, a.Value.Uint64())
	case slog.KindFloat64:
		rec.set(key, a.Value.Float64())
	case slog.KindDuration:
		rec.set(msKey(key), RoundMS(a.Value.Duration()).Milliseconds())
	case slog.KindTime:
		rec.set(key, a.Value.Time().UTC().Format(time.RFC3339Nano))
	default:
		switch x := a.Value.Any().(type) {
		case nil:
		case time.Duration:
			rec.set(msKey(key), RoundMS(x).Milliseconds())
		case error:
			rec.set(key, x.Error())
		case fmt.Stringer:
			rec.set(key, x.String())
		default:
			rec.set(key, fmt.Sprint(x))
		}
	}
}

// fillFromContext adds update fields the caller did not set explicitly.
func (rec record) fillFromContext(ctx context.Context) {
	u, ok := UpdateFrom(ctx)
	if !ok {
		return
	}
	fill := func(key string, v any, present bool) {
		if _, set := rec[key]; !set && present {
			rec.set(key, v)
		}
	}
	fill("rid", u.RID(), true)
	fill("update_id", int64(u.ID), u.ID != 0)
	fill("user_id", u.UserID, u.UserID != 0)
	fill("chat_id", u.ChatID, u.ChatID != 0)
	fill("handler", u.Handler, true)
}

// msKey renames a duration key so the unit is explicit.
func msKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func prefixed(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" {
		return a
	}
	a.Key = joinKey(prefix, a.Key)
	return a
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func encodeJSON(rec record, keys []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		data, err := json.Marshal(rec[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func encodeKV(rec record, keys []string) []byte {
	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(rec[k])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return b.Bytes()
}
