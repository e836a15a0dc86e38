package trace

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
)

// DefaultDepth is the number of lines AsyncWriter buffers.
const DefaultDepth = 64

// AsyncWriter forwards lines to an underlying writer from a background
// goroutine. Write never blocks: when the buffer is full the line is dropped
// and counted. Write errors of the underlying writer are logged once.
type AsyncWriter struct {
	w     io.Writer
	lines chan []byte
	done  chan struct{}

	closeOnce sync.Once
	dropped   atomic.Uint64
	failed    atomic.Bool
}

// NewAsyncWriter starts a writer that buffers up to depth lines.
func NewAsyncWriter(w io.Writer, depth int) *AsyncWriter {
	if depth <= 0 {
		depth = DefaultDepth
	}
	a := &AsyncWriter{
		w:     w,
		lines: make(chan []byte, depth),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncWriter) loop() {
	defer close(a.done)
	for line := range a.lines {
		if _, err := a.w.Write(line); err != nil {
			if !a.failed.Swap(true) {
				log.Printf("trace: write failed: %v", err)
			}
		}
	}
}

// Write queues a copy of p. It always reports success.
func (a *AsyncWriter) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)
	select {
	case a.lines <- line:
	default:
		if a.dropped.Add(1) == 1 {
			log.Printf("trace: sink too slow, dropping lines")
		}
	}
	return len(p), nil
}

// Dropped returns the number of lines dropped because the buffer was full.
func (a *AsyncWriter) Dropped() uint64 {
	return a.dropped.Load()
}

// Close flushes queued lines and stops the background goroutine.
// Write must not be called after Close.
func (a *AsyncWriter) Close() error {
	a.closeOnce.Do(func() { close(a.lines) })
	<-a.done
	return nil
}
