package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/spotdl-bot/core/config"
	"github.com/m3rciful/spotdl-bot/core/logger"
)

const defaultProbeTimeout = 15 * time.Second

// Probe is a startup check against an external dependency.
type Probe struct {
	Name string
	Run  func(ctx context.Context) error
}

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit   func(*coreconfig.Config) error
	Probes       []Probe
	ProbeTimeout time.Duration
}

// Run initializes the logger and then runs every probe in order. The first
// failing probe aborts startup.
func Run(ctx context.Context, opts Options) error {
	if opts.Config == nil {
		return fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	for _, p := range opts.Probes {
		if p.Run == nil {
			continue
		}
		start := time.Now()
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Run(pctx)
		cancel()
		if err != nil {
			return fmt.Errorf("bootstrap: probe %s failed: %w", p.Name, err)
		}
		logger.Info(ctx, "app", "probe.ok",
			slog.String("service", p.Name),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return nil
}
