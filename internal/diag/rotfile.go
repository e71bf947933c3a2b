package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxBytes is the size at which the log file is rotated.
const DefaultMaxBytes = 10 * 1024 * 1024

// RotatingFile appends log lines to a file and rotates it by size.
// A rotated file is renamed to <path>.<timestamp> and compressed to <path>.<timestamp>.zst.
type RotatingFile struct {
	path     string
	maxBytes int64
	mu       sync.Mutex
	f        *os.File
	curSize  int64
}

// NewRotatingFile creates a sink writing to path. The file is opened on first write.
func NewRotatingFile(path string, maxBytes int64) *RotatingFile {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &RotatingFile{path: path, maxBytes: maxBytes}
}

// Write appends p, rotating first if p would push the file past its size limit.
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureOpen(); err != nil {
		return 0, err
	}

	if w.curSize > 0 && w.curSize+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.f.Write(p)
	w.curSize += int64(n)

	return n, err //nolint:wrapcheck // io.Writer contract
}

// Sync flushes the current file to disk.
func (w *RotatingFile) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	return w.f.Sync() //nolint:wrapcheck // zapcore.WriteSyncer contract
}

// Close closes the current file.
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	err := w.f.Close()
	w.f = nil

	return err //nolint:wrapcheck // io.Closer contract
}

func (w *RotatingFile) ensureOpen() error {
	if w.f != nil {
		return nil
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // log path is user configured
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	w.f = f

	if st, err := f.Stat(); err == nil {
		w.curSize = st.Size()
	} else {
		w.curSize = 0
	}

	return nil
}

// rotate moves the current file aside, compresses it and opens a fresh one.
func (w *RotatingFile) rotate() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}

	w.f = nil

	// Nanosecond timestamps avoid collisions between rotations within the same second.
	rotated := fmt.Sprintf("%s.%s", w.path, time.Now().UTC().Format("20060102-150405.000000000"))
	if err := os.Rename(w.path, rotated); err != nil {
		return fmt.Errorf("rename rotated file: %w", err)
	}

	if err := compressFile(rotated); err != nil {
		return err
	}

	return w.ensureOpen()
}

// compressFile writes src to src.zst and removes src.
func compressFile(src string) (err error) {
	in, err := os.Open(src) //nolint:gosec // path built from the configured log path
	if err != nil {
		return fmt.Errorf("opening rotated log: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(src+".zst", os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // see above
	if err != nil {
		return fmt.Errorf("creating compressed log: %w", err)
	}

	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing compressed log: %w", cerr)
		}
	}()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()

		return fmt.Errorf("compressing rotated log: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing compressed log: %w", err)
	}

	if err := in.Close(); err != nil {
		return fmt.Errorf("closing rotated log: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing rotated log: %w", err)
	}

	return nil
}
