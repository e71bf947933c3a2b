package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Kind distinguishes the artifacts a run persists.
type Kind string

const (
	// KindText is the reassembled cipher output.
	KindText Kind = "text"
	// KindManifest is the sidecar run manifest.
	KindManifest Kind = "manifest"
)

// SaveRequest asks the save consumer to persist Text at Destination.
type SaveRequest struct {
	Kind        Kind
	Text        string
	Destination string
}

// SaveAck acknowledges a SaveRequest. Err is set, wrapping ErrIO, if the write failed.
type SaveAck struct {
	Kind        Kind
	Destination string
	Size        int64
	Err         error
}

// Sink persists text at a destination, all or nothing.
type Sink interface {
	Save(destination, text string) (int64, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(destination, text string) (int64, error)

// Save calls f.
func (f SinkFunc) Save(destination, text string) (int64, error) {
	return f(destination, text)
}

// consumeLogs writes every message to the logger until logs is closed.
func consumeLogs(logs <-chan string, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)

	for msg := range logs {
		logger.Info(msg)
	}
}

// consumeSaves persists every request and acknowledges it until saves is closed.
// A failed write is acknowledged with an error and the loop keeps serving requests.
// Requests received after ctx is done are acknowledged without writing; a write already
// started always runs to completion.
func consumeSaves(
	ctx context.Context,
	saves <-chan SaveRequest,
	acks chan<- SaveAck,
	sink Sink,
	logs chan<- string,
	done chan<- struct{},
) {
	defer close(done)

	for req := range saves {
		ack := SaveAck{Kind: req.Kind, Destination: req.Destination}

		if err := ctx.Err(); err != nil {
			ack.Err = fmt.Errorf("save of %s to %q canceled: %w", req.Kind, req.Destination, err)
			logs <- fmt.Sprintf("skipped saving %s to %q: %v", req.Kind, req.Destination, err)
			acks <- ack

			continue
		}

		size, err := sink.Save(req.Destination, req.Text)
		if err != nil {
			ack.Err = fmt.Errorf("%w: %s %q: %w", ErrIO, req.Kind, req.Destination, err)
			logs <- fmt.Sprintf("saving %s to %q failed: %v", req.Kind, req.Destination, err)
		} else {
			ack.Size = size
			logs <- fmt.Sprintf("saved %s to %q", req.Kind, req.Destination)
		}

		acks <- ack
	}
}
