// Package writer adapts the teacher's output.TabWriter (a single-goroutine
// bufio.Writer wrapper) to the variant-caller and read-caller stages,
// which write from a worker pool and so need the buffer guarded by a
// mutex rather than owned by one goroutine.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// LockedWriter serializes concurrent line writes to an underlying
// io.Writer through a single buffered writer.
type LockedWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// New wraps w in a LockedWriter.
func New(w io.Writer) *LockedWriter {
	return &LockedWriter{w: bufio.NewWriter(w)}
}

// WriteLine appends line plus a trailing newline, flushing immediately so
// a crash mid-run loses at most the in-flight record.
func (lw *LockedWriter) WriteLine(line string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if _, err := lw.w.WriteString(line); err != nil {
		return err
	}
	if _, err := lw.w.WriteString("\n"); err != nil {
		return err
	}
	return lw.w.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (lw *LockedWriter) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Flush()
}

// CreateOutput creates path for writing and returns a LockedWriter over
// it, gzip-compressing on the fly (via klauspost/compress/gzip) when path
// ends in ".gz". The returned close func flushes and closes every layer
// in order; callers must call it instead of closing the file themselves.
func CreateOutput(path string) (*LockedWriter, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("writer: create %s: %w", path, err)
	}

	if !strings.HasSuffix(path, ".gz") {
		return New(f), f.Close, nil
	}

	gz := gzip.NewWriter(f)
	lw := New(gz)
	closeFn := func() error {
		if err := lw.Flush(); err != nil {
			gz.Close()
			f.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return lw, closeFn, nil
}
