// Package logger is the bot's structured logging layer on top of log/slog.
// Records are written as ordered kv or JSON lines through an asynchronous
// writer; update metadata travels in the context.
package logger

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/spotdl-bot/core/buildinfo"
	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
)

var (
	// L is the root logger. It discards output until InitLogger runs.
	L *slog.Logger
	// TG is the Telegram runtime logger.
	TG *slog.Logger
	// TWire logs registry and route wiring.
	TWire *slog.Logger
	// Sessions logs session store events.
	Sessions *slog.Logger
)

var (
	initOnce sync.Once

	stateMu sync.Mutex
	sink    *asyncWriter
	closers []io.Closer
	stopped bool

	levelVar      slog.LevelVar
	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool
)

func init() {
	setRoot(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setRoot(root *slog.Logger) {
	L = root
	TG = root.With("component", "tg")
	TWire = root.With("component", "tg.wire")
	Sessions = root.With("component", "session")
}

// settings is the logging configuration after defaults.
type settings struct {
	format   logFormat
	level    slog.Level
	keyOrder []string
	num, den int
	file     string
	profile  string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{format: formatJSON, level: slog.LevelInfo, keyOrder: defaultKeyOrder, num: 1, den: 50, profile: "prod"}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.keyOrder = order
		}
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		s.num, s.den = parseRatioSpec(spec)
	}
	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

// InitLogger installs the structured logger. Only the first call has effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.num, s.den)
		traceOverride = envFlag("TRACE") || envFlag("LOG_TRACE")

		outputs := []io.Writer{os.Stdout}
		if s.file != "" {
			f, ferr := openLogFile(s.file)
			if ferr != nil {
				log.Printf("logger: %v", ferr)
			} else {
				outputs = append(outputs, f)
				closers = append(closers, f)
			}
		}
		sink = newAsyncWriter(outputs, 64*1024)

		root := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   sink,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		setRoot(root)
		slog.SetDefault(root)

		root.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("cfg_profile", s.profile),
		)
	})
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Shutdown flushes pending lines and closes file sinks. Later calls are no-ops.
func Shutdown() error {
	stateMu.Lock()
	defer stateMu.Unlock()
	if stopped {
		return nil
	}
	stopped = true

	var result *multierror.Error
	if sink != nil {
		if err := sink.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := sink.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Component returns the root logger tagged with component.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes one record with the event attribute first.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = L
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Event logs event for component at level.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 in the environment lets every line through.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
