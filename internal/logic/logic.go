// Package logic implements the core business logic for the encryption/decryption.
package logic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/idelchi/rotor/internal/chunk"
	"github.com/idelchi/rotor/internal/config"
	"github.com/idelchi/rotor/internal/diag"
	"github.com/idelchi/rotor/internal/fileutil"
	"github.com/idelchi/rotor/internal/manifest"
	"github.com/idelchi/rotor/internal/pipeline"
	"github.com/idelchi/rotor/internal/rotor"
	"github.com/idelchi/rotor/internal/textio"
	"github.com/idelchi/rotor/internal/workers"
)

// SelectFunc picks a worker count when none is configured.
type SelectFunc func(ctx context.Context) (int, float64, error)

// Runner processes the configured files one after another.
type Runner struct {
	// Stdout receives the per-file result lines
	Stdout io.Writer

	// Stderr receives errors, console logs and stats
	Stderr io.Writer

	// Select picks the worker count when neither flags nor a manifest set one
	Select SelectFunc
}

// stats accumulates the figures printed by --stats.
type stats struct {
	processed int
	errored   int
	chunks    int
	size      int64
}

// Run is the main logic of the application.
func Run(ctx context.Context, cfg *config.Config) error {
	runner := Runner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Select: workers.NewSelector().Select,
	}

	return runner.Run(ctx, cfg)
}

// Run processes every file in cfg. A failing file does not stop the others.
func (r Runner) Run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	if cfg.Dry {
		r.dryRun(cfg, start)

		return nil
	}

	key, err := cfg.ResolveKey()
	if err != nil {
		return err
	}

	logger, closeLog, err := diag.NewLogger(diag.Options{
		Level:   cfg.LogLevel,
		Quiet:   cfg.Quiet,
		File:    cfg.LogFile,
		Console: r.Stderr,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfig, err)
	}

	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(r.Stderr, "Error closing log: %v\n", err)
		}
	}()

	proc, err := pipeline.NewProcessor(pipeline.SinkFunc(fileutil.WriteAtomic), logger, pipeline.Options{
		FailFast: cfg.FailFast,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating processor: %w", err)
	}

	var (
		st   stats
		errs []error
	)

	for _, file := range cfg.Files {
		report, consumed, err := r.processFile(ctx, proc, logger, cfg, key, file)
		if err != nil {
			st.errored++

			errs = append(errs, fmt.Errorf("%q: %w", file, err))

			fmt.Fprintf(r.Stderr, "Error processing %q: %v\n", file, err)

			continue
		}

		st.processed++
		st.chunks += report.Chunks
		st.size += report.Size

		if !cfg.Quiet {
			fmt.Fprintf(r.Stdout, "Processed %q -> %q\n", report.Source, report.Destination)
		}

		if cfg.Delete {
			r.remove(cfg, append([]string{file}, consumed...)...)
		}
	}

	if cfg.Stats {
		r.printStats(st, time.Since(start))
	}

	if st.errored > 0 {
		return fmt.Errorf("%d of %d files failed: %w", st.errored, len(cfg.Files), errors.Join(errs...))
	}

	return nil
}

// remove deletes paths, reporting each result.
func (r Runner) remove(cfg *config.Config, paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			fmt.Fprintf(r.Stderr, "Error deleting %q: %v\n", path, err)
		} else if !cfg.Quiet {
			fmt.Fprintf(r.Stdout, "Deleted %q\n", path)
		}
	}
}

// processFile reads file, resolves its worker count and runs it through the pipeline.
// It also returns the sidecar files consumed along the way.
func (r Runner) processFile(
	ctx context.Context,
	proc *pipeline.Processor,
	logger *zap.Logger,
	cfg *config.Config,
	key int64,
	file string,
) (pipeline.Report, []string, error) {
	text, encoding, err := textio.ReadFile(file)
	if err != nil {
		return pipeline.Report{}, nil, err
	}

	logger.Debug("read input", zap.String("file", file), zap.String("encoding", encoding))

	job := pipeline.Job{
		Source:      file,
		Text:        text,
		Action:      rotor.Encrypt,
		Key:         key,
		Destination: cfg.OutputPath(file),
	}

	var consumed []string

	if cfg.Decrypt {
		job.Action = rotor.Decrypt

		m, err := r.loadManifest(cfg, file, key, proc.Alphabet().Len())
		if err != nil {
			return pipeline.Report{}, nil, err
		}

		if m != nil {
			job.Workers = m.Chunks
			job.Verify = m.Verify
			consumed = append(consumed, manifest.Path(file))
		}
	}

	if job.Workers == 0 {
		job.Workers = r.resolveWorkers(ctx, logger, cfg)
	}

	if !cfg.Decrypt && cfg.Manifest {
		content, err := manifest.New(key, job.Workers, proc.Alphabet().Len(), text).Marshal()
		if err != nil {
			return pipeline.Report{}, nil, err
		}

		job.Sidecars = append(job.Sidecars, pipeline.SaveRequest{
			Kind:        pipeline.KindManifest,
			Text:        content,
			Destination: manifest.Path(job.Destination),
		})
	}

	report, err := proc.Run(ctx, job)
	if err != nil {
		return report, nil, err
	}

	return report, consumed, nil
}

// loadManifest returns the manifest accompanying an encrypted file, or nil if there is none.
// A manifest is required when --manifest is set.
func (r Runner) loadManifest(cfg *config.Config, file string, key int64, alphabetSize int) (*manifest.Manifest, error) {
	path := manifest.Path(file)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !cfg.Manifest {
		return nil, nil //nolint:nilnil // no manifest is not an error
	}

	m, err := manifest.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfig, err)
	}

	if err := m.Validate(alphabetSize); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfig, err)
	}

	if err := m.CheckKey(key); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfig, err)
	}

	if cfg.Workers != 0 && cfg.Workers != m.Chunks {
		return nil, fmt.Errorf("%w: --workers %d conflicts with %d chunks recorded in %q",
			pipeline.ErrConfig, cfg.Workers, m.Chunks, path)
	}

	return &m, nil
}

// resolveWorkers returns the configured worker count, or one derived from CPU load.
func (r Runner) resolveWorkers(ctx context.Context, logger *zap.Logger, cfg *config.Config) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}

	n, load, err := r.Select(ctx)
	if err != nil {
		logger.Warn("falling back to a single worker", zap.Error(err))

		return 1
	}

	n = min(max(1, n), chunk.MaxCount)

	logger.Info("selected workers from cpu load", zap.Int("workers", n), zap.Float64("load", load))

	return n
}

// dryRun previews what would be processed without actually encrypting/decrypting.
func (r Runner) dryRun(cfg *config.Config, start time.Time) {
	var st stats

	for _, file := range cfg.Files {
		st.processed++

		if !cfg.Quiet {
			fmt.Fprintf(r.Stdout, "Processed %q -> %q\n", file, cfg.OutputPath(file))
		}

		if info, err := os.Stat(file); err == nil {
			st.size += info.Size()
		}
	}

	if cfg.Stats {
		r.printStats(st, time.Since(start))
	}
}

func (r Runner) printStats(st stats, duration time.Duration) {
	fmt.Fprintf(r.Stderr, "\nStats\n")
	fmt.Fprintf(r.Stderr, "  Processed: %d\n", st.processed)
	fmt.Fprintf(r.Stderr, "  Errors:    %d\n", st.errored)
	fmt.Fprintf(r.Stderr, "  Chunks:    %d\n", st.chunks)
	//nolint:gosec // size is always non-negative (sum of file sizes)
	fmt.Fprintf(r.Stderr, "  Size:      %s\n", humanize.IBytes(uint64(max(0, st.size))))
	fmt.Fprintf(r.Stderr, "  Duration:  %s\n", duration.Round(time.Millisecond))
}
