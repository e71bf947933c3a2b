package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSaveConsumerSurvivesFailure(t *testing.T) {
	t.Parallel()

	written := map[string]string{}

	sink := SinkFunc(func(destination, text string) (int64, error) {
		if destination == "bad" {
			return 0, errors.New("permission denied")
		}

		written[destination] = text

		return int64(len(text)), nil
	})

	saves := make(chan SaveRequest)
	acks := make(chan SaveAck, 3)
	logs := make(chan string, 8)
	done := make(chan struct{})

	go consumeSaves(context.Background(), saves, acks, sink, logs, done)

	saves <- SaveRequest{Kind: KindText, Text: "one", Destination: "bad"}
	saves <- SaveRequest{Kind: KindText, Text: "two", Destination: "good"}
	saves <- SaveRequest{Kind: KindManifest, Text: "{}", Destination: "good.manifest.json"}
	close(saves)
	<-done

	first := <-acks
	if !errors.Is(first.Err, ErrIO) {
		t.Errorf("first ack error = %v, want %v", first.Err, ErrIO)
	}

	second := <-acks
	if second.Err != nil || second.Size != 3 || second.Destination != "good" {
		t.Errorf("second ack = %+v, want a successful 3-byte save to good", second)
	}

	third := <-acks
	if third.Err != nil || third.Kind != KindManifest {
		t.Errorf("third ack = %+v, want a successful manifest save", third)
	}

	if written["good"] != "two" {
		t.Errorf("good = %q, want %q", written["good"], "two")
	}

	if len(logs) != 3 {
		t.Errorf("save consumer logged %d messages, want 3", len(logs))
	}
}

func TestLogConsumerPreservesOrder(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)

	logs := make(chan string)
	done := make(chan struct{})

	go consumeLogs(logs, zap.New(core), done)

	want := []string{"first", "second", "third"}
	for _, msg := range want {
		logs <- msg
	}

	close(logs)
	<-done

	entries := observed.AllUntimed()
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}

	for i, entry := range entries {
		if entry.Message != want[i] {
			t.Errorf("entry %d = %q, want %q", i, entry.Message, want[i])
		}
	}
}

func TestSaveConsumerSkipsWritesAfterCancel(t *testing.T) {
	t.Parallel()

	calls := 0

	sink := SinkFunc(func(_, text string) (int64, error) {
		calls++

		return int64(len(text)), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	saves := make(chan SaveRequest)
	acks := make(chan SaveAck, 1)
	logs := make(chan string, 4)
	done := make(chan struct{})

	go consumeSaves(ctx, saves, acks, sink, logs, done)

	saves <- SaveRequest{Kind: KindText, Text: "late", Destination: "out"}
	close(saves)
	<-done

	ack := <-acks
	if !errors.Is(ack.Err, context.Canceled) {
		t.Errorf("ack error = %v, want %v", ack.Err, context.Canceled)
	}

	if calls != 0 {
		t.Errorf("sink called %d times after cancellation, want 0", calls)
	}
}
