// Package natsnotify publishes post-commit processing events for the audit
// and notification consumers. Delivery is best effort: a failure here never
// affects the pipeline outcome.
package natsnotify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

type Notifier struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func New(conn *nats.Conn, subject string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{conn: conn, subject: subject, logger: logger}
}

type event struct {
	FileID       string    `json:"file_id"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	At           time.Time `json:"at"`
}

func (n *Notifier) FileProcessed(_ context.Context, fileID string, status domain.ProcessingStatus, errMessage string, at time.Time) {
	payload, err := json.Marshal(event{
		FileID:       fileID,
		Status:       string(status),
		ErrorMessage: errMessage,
		At:           at,
	})
	if err != nil {
		n.logger.Warn("encode processed event", "file_id", fileID, "error", err)
		return
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		n.logger.Warn("publish processed event", "file_id", fileID, "error", err)
	}
}
