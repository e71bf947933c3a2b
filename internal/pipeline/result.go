package pipeline

import (
	"errors"
	"time"

	"github.com/idelchi/rotor/internal/chunk"
	"github.com/idelchi/rotor/internal/rotor"
)

// Outcome collects what a Pool run produced.
type Outcome struct {
	// Partials holds the output of every successful chunk
	Partials []chunk.Partial

	// Failures holds one error per failed chunk
	Failures []*ChunkError
}

// Err joins all chunk failures, or returns nil if there were none.
func (o Outcome) Err() error {
	errs := make([]error, 0, len(o.Failures))
	for _, f := range o.Failures {
		errs = append(errs, f)
	}

	return errors.Join(errs...)
}

// Report describes a finished run.
type Report struct {
	// Source names the processed input
	Source string

	// Destination is where the output was written
	Destination string

	// Action is the direction the cipher ran in
	Action rotor.Direction

	// Chunks is the number of chunks the text was split into
	Chunks int

	// Size is the number of bytes written to Destination
	Size int64

	// Elapsed is the wall time of the run
	Elapsed time.Duration

	// Failures lists the chunks that could not be processed
	Failures []*ChunkError
}
