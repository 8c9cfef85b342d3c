package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sourcegraph/conc"
)

const defaultQueueSize = 1024

type record struct {
	dst io.Writer
	p   []byte
}

// asyncQueue delivers formatted entries to their sinks on one goroutine.
// A full queue blocks the producer; entries are never dropped.
type asyncQueue struct {
	ch chan record
	wg conc.WaitGroup

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func newAsyncQueue(size int) *asyncQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	q := &asyncQueue{ch: make(chan record, size)}
	q.wg.Go(q.drain)
	return q
}

func (q *asyncQueue) drain() {
	for r := range q.ch {
		if _, err := r.dst.Write(r.p); err != nil {
			fmt.Fprintf(os.Stderr, "ethermirror: log write failed: %v\n", err)
		}
	}
}

// Writer returns an io.Writer that enqueues to dst.
func (q *asyncQueue) Writer(dst io.Writer) *queueWriter {
	return &queueWriter{q: q, dst: dst}
}

func (q *asyncQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
		q.wg.Wait()
	})
}

type queueWriter struct {
	q   *asyncQueue
	dst io.Writer
}

func (w *queueWriter) Write(p []byte) (int, error) {
	w.q.mu.RLock()
	defer w.q.mu.RUnlock()
	if w.q.closed {
		return w.dst.Write(p)
	}
	// logrus reuses its buffers once Write returns.
	w.q.ch <- record{dst: w.dst, p: bytes.Clone(p)}
	return len(p), nil
}
