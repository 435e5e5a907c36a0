package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

type writeReq struct {
	line []byte
	ack  chan error
}

// asyncWriter copies lines to every sink from a single goroutine so callers
// never block on disk or terminal I/O unless the queue is full. The first
// sink error sticks and is returned by later calls.
type asyncWriter struct {
	reqs chan writeReq
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error

	sinks []*bufio.Writer
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		reqs: make(chan writeReq, 256),
		done: make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for req := range w.reqs {
		if req.ack != nil {
			req.ack <- w.flush()
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(req.line); err != nil {
				w.fail(err)
				break
			}
		}
		// Flush eagerly when idle so lines show up promptly.
		if len(w.reqs) == 0 {
			if err := w.flush(); err != nil {
				w.fail(err)
			}
		}
	}
	if err := w.flush(); err != nil {
		w.fail(err)
	}
}

// Write queues a copy of p.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.stickyErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.send(writeReq{line: append([]byte(nil), p...)})
}

// Flush blocks until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.stickyErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	if err := w.send(writeReq{ack: ack}); err != nil {
		return err
	}
	return <-ack
}

func (w *asyncWriter) send(req writeReq) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.reqs <- req
	return nil
}

// Close drains the queue and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.reqs)
	}
	w.mu.Unlock()
	<-w.done
	return w.stickyErr()
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *asyncWriter) stickyErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
