package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/idelchi/rotor/internal/chunk"
	"github.com/idelchi/rotor/internal/rotor"
)

// logBacklog is the log channel capacity. The log consumer drains it while workers run.
const logBacklog = 64

// Options tune a Processor.
type Options struct {
	// FailFast cancels all workers after the first chunk failure
	FailFast bool

	// Timeout bounds the pool join; zero means no deadline
	Timeout time.Duration
}

// Job is a single text to run through the pipeline.
type Job struct {
	// Source names the input, for logging only
	Source string

	// Text is the decoded input
	Text string

	// Action selects encryption or decryption
	Action rotor.Direction

	// Key seeds the rotors
	Key int64

	// Workers is the number of chunks, and the number of concurrent workers
	Workers int

	// Destination receives the reassembled output
	Destination string

	// Verify, if set, checks the reassembled output before anything is saved
	Verify func(output string) error

	// Sidecars are saved after the output has been saved successfully
	Sidecars []SaveRequest
}

// Processor orchestrates partitioning, the worker pool, reassembly and persistence.
type Processor struct {
	// alphabet is built once and shared by all runs
	alphabet *rotor.Alphabet

	// sink persists outputs through the save consumer
	sink Sink

	// logger receives progress messages through the log consumer
	logger *zap.Logger

	// opts holds the tuning options
	opts Options
}

// NewProcessor creates a Processor that persists through sink and logs to logger.
func NewProcessor(sink Sink, logger *zap.Logger, opts Options) (*Processor, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: no sink", ErrConfig)
	}

	if opts.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %s", ErrConfig, opts.Timeout)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		alphabet: rotor.NewAlphabet(),
		sink:     sink,
		logger:   logger,
		opts:     opts,
	}, nil
}

// Alphabet returns the alphabet shared by the processor's ciphers.
func (p *Processor) Alphabet() *rotor.Alphabet {
	return p.alphabet
}

// Run processes job and saves its output. The log and save consumers live exactly as long as Run.
// Output is only saved after every chunk succeeded and Verify passed.
//
//nolint:funlen
func (p *Processor) Run(ctx context.Context, job Job) (report Report, err error) {
	start := time.Now()

	report = Report{
		Source:      job.Source,
		Destination: job.Destination,
		Action:      job.Action,
		Chunks:      job.Workers,
	}

	if err := validate(job); err != nil {
		return report, err
	}

	logger := p.logger.With(zap.String("source", job.Source), zap.Stringer("action", job.Action))

	logs := make(chan string, logBacklog)
	saves := make(chan SaveRequest)
	acks := make(chan SaveAck, 1+len(job.Sidecars))

	logsDone := make(chan struct{})
	savesDone := make(chan struct{})

	go consumeLogs(logs, logger, logsDone)
	go consumeSaves(ctx, saves, acks, p.sink, logs, savesDone)

	defer func() {
		close(saves)
		<-savesDone

		report.Elapsed = time.Since(start)
		logs <- fmt.Sprintf("completed in %.2fs", report.Elapsed.Seconds())

		close(logs)
		<-logsDone
	}()

	logger.Info("starting run", zap.Int("workers", job.Workers), zap.Int("bytes", len(job.Text)))

	chunks, err := chunk.Partition(job.Text, job.Workers)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	outcome := p.runPool(ctx, chunks, job, logs)
	report.Failures = outcome.Failures

	output, err := chunk.Reassemble(outcome.Partials, len(chunks))
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrIncompletePipeline, errors.Join(err, outcome.Err()))
	}

	if job.Verify != nil {
		if err := job.Verify(output); err != nil {
			return report, fmt.Errorf("verifying output: %w", err)
		}
	}

	ack, err := p.save(ctx, saves, acks, SaveRequest{Kind: KindText, Text: output, Destination: job.Destination})
	if err != nil {
		return report, err
	}

	report.Size = ack.Size

	for _, sidecar := range job.Sidecars {
		if _, err := p.save(ctx, saves, acks, sidecar); err != nil {
			return report, err
		}
	}

	return report, nil
}

// runPool runs the worker pool, bounded by the configured timeout.
func (p *Processor) runPool(ctx context.Context, chunks []chunk.Chunk, job Job, logs chan<- string) Outcome {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	pool := NewPool(p.alphabet, job.Workers, p.opts.FailFast)

	return pool.Run(ctx, chunks, job.Key, job.Action, logs)
}

// save hands req to the save consumer and waits for its acknowledgement.
func (p *Processor) save(ctx context.Context, saves chan<- SaveRequest, acks <-chan SaveAck, req SaveRequest) (SaveAck, error) {
	select {
	case saves <- req:
	case <-ctx.Done():
		return SaveAck{}, fmt.Errorf("issuing save of %q: %w", req.Destination, ctx.Err())
	}

	// The ack tells whether the write happened, so it is awaited even after cancellation.
	ack := <-acks

	return ack, ack.Err
}

// validate rejects jobs that cannot run.
func validate(job Job) error {
	switch {
	case job.Workers < 1 || job.Workers > chunk.MaxCount:
		return fmt.Errorf("%w: worker count must be between 1 and %d, got %d", ErrConfig, chunk.MaxCount, job.Workers)
	case job.Action != rotor.Encrypt && job.Action != rotor.Decrypt:
		return fmt.Errorf("%w: unknown action %d", ErrConfig, job.Action)
	case job.Destination == "":
		return fmt.Errorf("%w: no destination", ErrConfig)
	}

	return nil
}
