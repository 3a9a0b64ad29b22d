package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

// jsAckReply builds the reply subject JetStream attaches to deliveries, which
// is where delivery metadata lives.
func jsAckReply(stream, consumer string, numDelivered uint64, ts time.Time) string {
	return fmt.Sprintf("$JS.ACK.%s.%s.%d.7.11.%d.0", stream, consumer, numDelivered, ts.UnixNano())
}

func TestJobFromMsgReadsDeliveryMetadata(t *testing.T) {
	enqueued := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	msg := &nats.Msg{
		Subject: "files.process",
		Reply:   jsAckReply("FILE_PROCESSING", "file-workers", 3, enqueued),
		Data:    []byte("file-1"),
	}

	job := jobFromMsg(msg)
	if job.FileID != "file-1" {
		t.Fatalf("FileID = %q", job.FileID)
	}
	if job.Attempt != 3 {
		t.Fatalf("Attempt = %d, want 3", job.Attempt)
	}
	if !job.EnqueuedAt.Equal(enqueued) {
		t.Fatalf("EnqueuedAt = %v, want %v", job.EnqueuedAt, enqueued)
	}
}

func TestDeliveryMetadataV2Layout(t *testing.T) {
	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	reply := fmt.Sprintf("$JS.ACK.hub.acchash.FILE_PROCESSING.file-workers.2.7.11.%d.0.rand", ts.UnixNano())

	numDelivered, enqueued, ok := deliveryMetadata(reply)
	if !ok {
		t.Fatalf("expected v2 reply to parse")
	}
	if numDelivered != 2 {
		t.Fatalf("numDelivered = %d, want 2", numDelivered)
	}
	if !enqueued.Equal(ts) {
		t.Fatalf("timestamp = %v, want %v", enqueued, ts)
	}
}

func TestDeliveryMetadataRejectsForeignReply(t *testing.T) {
	for _, reply := range []string{"", "_INBOX.abc", "$JS.ACK.too.short"} {
		if _, _, ok := deliveryMetadata(reply); ok {
			t.Errorf("deliveryMetadata(%q) unexpectedly parsed", reply)
		}
	}
}

func TestJobFromMsgWithoutMetadata(t *testing.T) {
	msg := &nats.Msg{Subject: "files.process", Data: []byte("file-2")}

	job := jobFromMsg(msg)
	if job.FileID != "file-2" {
		t.Fatalf("FileID = %q", job.FileID)
	}
	if job.Attempt != 1 {
		t.Fatalf("Attempt = %d, want fallback 1", job.Attempt)
	}
}

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"connection closed", nats.ErrConnectionClosed, true, true},
		{"no responders", nats.ErrNoResponders, true, true},
		{"context canceled", context.Canceled, false, false},
		{"generic", errors.New("bad subject"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := classifyNATSError(tc.err)
			if class.Retryable != tc.retryable {
				t.Errorf("Retryable = %v, want %v", class.Retryable, tc.retryable)
			}
			if class.RecordFailure != tc.recordFailure {
				t.Errorf("RecordFailure = %v, want %v", class.RecordFailure, tc.recordFailure)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("jetstream publish: %w", nats.ErrNoServers))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}

	plain := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(plain); !errors.Is(got, plain) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("non-retryable error must pass through, got %v", got)
	}

	if wrapTemporaryIfNeeded(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
