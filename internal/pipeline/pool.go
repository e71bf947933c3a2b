package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/idelchi/rotor/internal/chunk"
	"github.com/idelchi/rotor/internal/rotor"
)

// errPanic marks a worker that panicked.
var errPanic = errors.New("worker panicked")

// Pool applies the cipher to chunks concurrently, one independent Cipher per chunk.
type Pool struct {
	// alphabet is shared read-only by every cipher
	alphabet *rotor.Alphabet

	// limit caps the number of concurrently running workers
	limit int

	// failFast cancels the remaining workers after the first failure
	failFast bool
}

// NewPool creates a pool running at most limit workers at once.
// A limit below 1 means one worker per chunk.
func NewPool(alphabet *rotor.Alphabet, limit int, failFast bool) *Pool {
	return &Pool{alphabet: alphabet, limit: limit, failFast: failFast}
}

// Run processes every chunk and blocks until all workers have returned.
// Failures stay attached to their chunk and do not affect sibling results,
// unless the pool is fail-fast, in which case the first failure cancels the rest.
func (p *Pool) Run(ctx context.Context, chunks []chunk.Chunk, key int64, dir rotor.Direction, logs chan<- string) Outcome {
	type slot struct {
		partial chunk.Partial
		err     *ChunkError
	}

	slots := make([]slot, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)

	limit := p.limit
	if limit < 1 {
		limit = len(chunks)
	}

	group.SetLimit(max(limit, 1))

	for i, c := range chunks {
		group.Go(func() error {
			text, err := p.process(groupCtx, c, key, dir, logs)
			if err != nil {
				slots[i].err = &ChunkError{Index: c.Index, Err: err}

				if p.failFast {
					return slots[i].err
				}

				return nil
			}

			slots[i].partial = chunk.Partial{Index: c.Index, Text: text}

			return nil
		})
	}

	_ = group.Wait() // failures are collected per slot

	var outcome Outcome

	for _, s := range slots {
		if s.err != nil {
			outcome.Failures = append(outcome.Failures, s.err)

			continue
		}

		outcome.Partials = append(outcome.Partials, s.partial)
	}

	return outcome
}

// process runs a fresh cipher over one chunk, turning a panic into an error.
func (p *Pool) process(ctx context.Context, c chunk.Chunk, key int64, dir rotor.Direction, logs chan<- string) (text string, err error) {
	logs <- fmt.Sprintf("chunk %d: processing started", c.Index)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}

		if err != nil {
			logs <- fmt.Sprintf("chunk %d: processing failed: %v", c.Index, err)
		} else {
			logs <- fmt.Sprintf("chunk %d: processing finished", c.Index)
		}
	}()

	return rotor.New(key, p.alphabet).Process(ctx, dir, c.Text)
}
