package ports

import (
	"context"
	"io"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

// FileIngestor is the inbound contract for the upload flow.
type FileIngestor interface {
	Upload(ctx context.Context, originalName, uploadedBy string, size int64, body io.Reader) (*domain.SourceFile, error)
}

// FileProcessor is the inbound contract for asynchronous file processing,
// invoked by the worker pool once per job delivery.
type FileProcessor interface {
	Process(ctx context.Context, job domain.Job) error
}

// FileReader is the inbound read model for file metadata/state.
type FileReader interface {
	GetByID(ctx context.Context, id string) (*domain.SourceFile, error)
}

// RecordExporter produces a workbook of cleaned records for human review.
type RecordExporter interface {
	ExportPendingReview(ctx context.Context, limit int) ([]byte, error)
}
