package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vthnguyen/docstream/internal/core/domain"
	"github.com/vthnguyen/docstream/internal/infrastructure/resilience"
)

// Queue is a durable at-least-once job channel backed by a JetStream work
// queue stream. Jobs carry the file id as the message body; the delivery
// attempt is read back from JetStream metadata so redelivery accounting lives
// in the queue, not in application state.
type Queue struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	stream   string
	subject  string
	durable  string
	executor *resilience.Executor

	concurrency int
	maxDeliver  int
	ackWait     time.Duration
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor

	// Concurrency bounds simultaneous handler invocations (worker pool size).
	Concurrency int
	// MaxDeliver caps queue-level redelivery. The worker enforces its own
	// attempt cap below this backstop.
	MaxDeliver int
	// AckWait is the visibility timeout: an unacknowledged job is redelivered
	// after this window.
	AckWait time.Duration
}

func New(url, stream, subject, durable string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	maxDeliver := options.MaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = 4
	}
	ackWait := options.AckWait
	if ackWait <= 0 {
		ackWait = 5 * time.Minute
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docstream"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	q := &Queue{
		conn:        conn,
		js:          js,
		stream:      stream,
		subject:     subject,
		durable:     durable,
		executor:    options.ResilienceExecutor,
		concurrency: concurrency,
		maxDeliver:  maxDeliver,
		ackWait:     ackWait,
	}
	if err := q.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) ensureStream() error {
	_, err := q.js.StreamInfo(q.stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}
	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:      q.stream,
		Subjects:  []string{q.subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", q.stream, err)
	}
	return nil
}

// Conn exposes the underlying connection for collaborators that publish on
// plain subjects (e.g. the post-commit notifier).
func (q *Queue) Conn() *nats.Conn {
	return q.conn
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Enqueue publishes one job for the given file. The caller must have created
// the SourceFile row in QUEUED state before calling, so a worker never races a
// missing record.
func (q *Queue) Enqueue(ctx context.Context, fileID string) error {
	call := func(_ context.Context) error {
		if _, err := q.js.Publish(q.subject, []byte(fileID)); err != nil {
			return fmt.Errorf("jetstream publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// Consume runs a fixed-size worker pool over a durable pull consumer. Each
// worker holds at most one job at a time; the pool size caps in-flight
// pipeline executions. Blocks until ctx is done, then drains.
func (q *Queue) Consume(ctx context.Context, handler func(context.Context, domain.Job) error) error {
	sub, err := q.js.PullSubscribe(
		q.subject,
		q.durable,
		nats.BindStream(q.stream),
		nats.ManualAck(),
		nats.AckWait(q.ackWait),
		nats.MaxDeliver(q.maxDeliver),
	)
	if err != nil {
		return fmt.Errorf("jetstream pull subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.workerLoop(ctx, sub, handler)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (q *Queue) workerLoop(ctx context.Context, sub *nats.Subscription, handler func(context.Context, domain.Job) error) {
	for {
		if ctx.Err() != nil {
			return
		}
		msgs, err := sub.Fetch(1, nats.MaxWait(2*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			slog.Error("jetstream fetch", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, msg := range msgs {
			q.dispatch(ctx, msg, handler)
		}
	}
}

func (q *Queue) dispatch(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.Job) error) {
	job := jobFromMsg(msg)
	err := handler(ctx, job)
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("ack job", "file_id", job.FileID, "error", ackErr)
		}
	case domain.IsKind(err, domain.ErrAttemptsExhausted):
		// Terminal: do not redeliver. The worker already recorded the outcome.
		if termErr := msg.Term(); termErr != nil {
			slog.Error("terminate job", "file_id", job.FileID, "error", termErr)
		}
	default:
		slog.Warn("job failed, requesting redelivery",
			"file_id", job.FileID, "attempt", job.Attempt, "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nak job", "file_id", job.FileID, "error", nakErr)
		}
	}
}

func jobFromMsg(msg *nats.Msg) domain.Job {
	job := domain.Job{FileID: string(msg.Data), Attempt: 1}
	if numDelivered, ts, ok := deliveryMetadata(msg.Reply); ok {
		job.Attempt = int(numDelivered)
		job.EnqueuedAt = ts
	}
	return job
}

// deliveryMetadata reads the delivery count and publish timestamp from a
// JetStream ack reply subject. Token layout (v1, 9 tokens):
// $JS.ACK.<stream>.<consumer>.<delivered>.<sseq>.<cseq>.<tm>.<pending>
// The v2 layout inserts <domain>.<acchash> after $JS.ACK.
func deliveryMetadata(reply string) (uint64, time.Time, bool) {
	if !strings.HasPrefix(reply, "$JS.ACK.") {
		return 0, time.Time{}, false
	}
	tokens := strings.Split(reply, ".")
	offset := 0
	switch {
	case len(tokens) == 9:
	case len(tokens) >= 11:
		offset = 2
	default:
		return 0, time.Time{}, false
	}
	numDelivered, err := strconv.ParseUint(tokens[4+offset], 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	tsNanos, err := strconv.ParseInt(tokens[7+offset], 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	return numDelivered, time.Unix(0, tsNanos), true
}
