// Package sender runs fire-and-forget Telegram calls on a small worker pool.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/core/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job did not fit into the queue.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the dispatcher. Zero values fall back to defaults.
type Options struct {
	QueueSize  int
	Workers    int
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on one job, retries included.
	MaxDuration time.Duration
	// Clock drives backoff waits; tests pass a fake clock.
	Clock clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Job is one outbound call. Run must be safe to call again on retry.
type Job struct {
	Action   string
	Endpoint string
	Run      func() error
}

type queued struct {
	ctx context.Context
	job Job
}

// Dispatcher executes queued jobs and counts the ones that failed for good.
type Dispatcher struct {
	opts Options

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	wg     sync.WaitGroup

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewDispatcher starts the worker pool.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:  opts,
		queue: make(chan queued, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer d.wg.Done()
			for q := range d.queue {
				d.process(q.ctx, q.job)
			}
		}()
	}
	return d
}

// Enqueue schedules run without waiting for it. The caller falls back to a
// synchronous call on ErrQueueFull or ErrQueueClosed.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	return d.Submit(ctx, Job{Action: action, Endpoint: endpoint, Run: run})
}

// Submit is Enqueue taking a Job.
func (d *Dispatcher) Submit(ctx context.Context, job Job) error {
	if job.Run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queue <- queued{ctx: ctx, job: job}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns how many jobs failed after all attempts.
func (d *Dispatcher) ErrorCount() uint64 { return d.failed.Load() }

// SentCount returns how many jobs eventually succeeded.
func (d *Dispatcher) SentCount() uint64 { return d.sent.Load() }

// Close drains the queue and waits for the workers. It is safe to call twice.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(parent context.Context, job Job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.opts.MaxDuration)
	defer cancel()

	start := d.opts.Clock.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = job.Run(); err == nil {
			d.sent.Add(1)
			attrs := jobAttrs(parent, job)
			if attempt > 1 {
				attrs = append(attrs, slog.Int("attempt", attempt))
			}
			logger.Debug(parent, component, "send.success", append(attrs, elapsedAttr(d.opts.Clock.Since(start)))...)
			return
		}
		if attempt == attempts {
			break
		}
		delay, ok := d.retryDelay(err, attempt)
		if !ok {
			break
		}
		logger.Debug(parent, component, "send.retry.backoff", append(jobAttrs(parent, job),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error_kind", Classify(err)),
		)...)
		if werr := d.wait(ctx, delay); werr != nil {
			err = werr
			break
		}
	}

	d.failed.Add(1)
	logger.Error(parent, component, "send.fail", append(jobAttrs(parent, job),
		slog.String("error", Redact(err)),
		slog.String("error_kind", Classify(err)),
		slog.Int("attempts", attempts),
		elapsedAttr(d.opts.Clock.Since(start)),
	)...)
}

// retryDelay honours Telegram's retry_after on flood errors and falls back
// to linear backoff for transient network failures.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	if after, ok := FloodWait(err); ok {
		return after, true
	}
	if !netutil.ShouldRetry(err) {
		return 0, false
	}
	return d.opts.RetryBackoff * time.Duration(attempt), true
}

func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) error {
	timer := d.opts.Clock.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func jobAttrs(ctx context.Context, job Job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", job.Action)}
	if job.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", job.Endpoint))
	}
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	return attrs
}

func elapsedAttr(d time.Duration) slog.Attr {
	return slog.Int64("elapsed_ms", logger.RoundMS(d).Milliseconds())
}
