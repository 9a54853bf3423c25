package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter fans log lines out to buffered sinks from a single goroutine.
type asyncWriter struct {
	lines    chan []byte
	flushReq chan chan error
	stopped  chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	sinks    []*bufio.Writer
	firstErr error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w == nil {
			continue
		}
		sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
	}
	aw := &asyncWriter{
		lines:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		stopped:  make(chan struct{}),
		sinks:    sinks,
	}
	go aw.run()
	return aw
}

func (w *asyncWriter) run() {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flushSinks()
				close(w.stopped)
				return
			}
			if len(line) == 0 {
				continue
			}
			if err := w.writeSinks(line); err != nil {
				w.recordErr(err)
			}
		case ack := <-w.flushReq:
			ack <- w.flushSinks()
		}
	}
}

// Write enqueues one formatted line. It blocks when the queue is full
// rather than dropping output.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	w.lines <- line
	return nil
}

// Flush forces all buffered output to the underlying sinks.
func (w *asyncWriter) Flush() error {
	if err := w.err(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains pending lines, flushes the sinks and reports the first write error.
func (w *asyncWriter) Close() error {
	w.stopOnce.Do(func() {
		close(w.lines)
	})
	<-w.stopped
	return w.err()
}

func (w *asyncWriter) writeSinks(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sink := range w.sinks {
		if sink == nil {
			continue
		}
		if _, err := sink.Write(p); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushSinks() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, sink := range w.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstErr
}

func (w *asyncWriter) recordErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
	}
}
