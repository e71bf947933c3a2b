package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned for invalid run settings, before any worker starts.
	ErrConfig = errors.New("invalid configuration")
	// ErrWorker marks a failure inside a single chunk's cipher evaluation.
	ErrWorker = errors.New("worker failed")
	// ErrIncompletePipeline is returned when reassembly is missing at least one chunk.
	ErrIncompletePipeline = errors.New("incomplete pipeline")
	// ErrIO is returned when persisting a result fails.
	ErrIO = errors.New("save failed")
)

// ChunkError associates a worker failure with the chunk it happened in.
type ChunkError struct {
	// Index of the failed chunk
	Index int

	// Err is the underlying failure
	Err error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

// Unwrap exposes both ErrWorker and the underlying error to errors.Is and errors.As.
func (e *ChunkError) Unwrap() []error {
	return []error{ErrWorker, e.Err}
}
