package output

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/azicorr/internal/domain/correlation"
)

// YODA writes distributions to a single YODA text file.
type YODA struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// NewYODA creates path, along with missing parent directories.
func NewYODA(path string) (*YODA, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &YODA{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the output file path.
func (y *YODA) Path() string { return y.path }

// Write implements Sink.
func (y *YODA) Write(_ context.Context, r correlation.Result) error {
	if r.Dist == nil {
		return fmt.Errorf("%w: %s", ErrNoResult, r.Key)
	}
	raw, err := r.Dist.MarshalYODA()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", r.Key, err)
	}

	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return ErrClosed
	}
	if _, err := y.w.Write(raw); err != nil {
		return fmt.Errorf("write %s: %w", r.Key, err)
	}
	if _, err := y.w.WriteString("\n"); err != nil {
		return fmt.Errorf("write %s: %w", r.Key, err)
	}
	return nil
}

// Close flushes and closes the file.
func (y *YODA) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return nil
	}
	y.closed = true
	if err := y.w.Flush(); err != nil {
		_ = y.f.Close()
		return fmt.Errorf("flush %s: %w", y.path, err)
	}
	return y.f.Close()
}
