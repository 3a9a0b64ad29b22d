package ports

import (
	"context"
	"io"
	"time"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

// SourceFileRepository persists and reads source-file state.
type SourceFileRepository interface {
	Create(ctx context.Context, file *domain.SourceFile) error
	GetByID(ctx context.Context, id string) (*domain.SourceFile, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error
}

// ResultCommitter applies one pipeline run's output in a single transaction:
// the SourceFile becomes COMPLETED (with OCR fields when required) and exactly
// one CleanedRecord is inserted with review status PENDING.
type ResultCommitter interface {
	Commit(ctx context.Context, file *domain.SourceFile, result domain.PipelineResult) error
}

// CleanedRecordReader lists derived records for the review/export surface.
type CleanedRecordReader interface {
	ListByReviewStatus(ctx context.Context, status domain.ReviewStatus, limit int) ([]domain.CleanedRecord, error)
}

// ObjectStorage stores uploaded documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// JobQueue is the durable at-least-once delivery channel between the upload
// flow and the worker pool. Consume blocks until ctx is done, invoking handler
// once per delivery; a nil handler error acknowledges the job, an error marked
// domain.ErrAttemptsExhausted terminates it, any other error requests
// redelivery.
type JobQueue interface {
	Enqueue(ctx context.Context, fileID string) error
	Consume(ctx context.Context, handler func(context.Context, domain.Job) error) error
}

// OCRExtractor extracts text from file content that requires OCR.
type OCRExtractor interface {
	ExtractText(ctx context.Context, fileType string, data []byte) (string, error)
}

// TextCleaner normalizes extracted text. Deterministic for a given input.
type TextCleaner interface {
	Clean(text string) (string, domain.CleaningOps)
}

// Classifier assigns a category and an ordered keyword sequence. Pure
// function of the cleaned text.
type Classifier interface {
	Classify(text string) domain.Classification
}

// Scorer computes the advisory quality and confidence scores, both in [0,1].
type Scorer interface {
	Score(extracted, cleaned string, cls domain.Classification) (quality, confidence float64)
}

// Notifier is the best-effort post-commit audit/notification collaborator.
// Implementations must never fail the pipeline.
type Notifier interface {
	FileProcessed(ctx context.Context, fileID string, status domain.ProcessingStatus, errMessage string, at time.Time)
}
