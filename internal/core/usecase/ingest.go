package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vthnguyen/docstream/internal/core/domain"
	"github.com/vthnguyen/docstream/internal/core/ports"
)

// ocrRequiredTypes are the file types whose text must come from the OCR/
// extraction backend. Decided once here, at upload time.
var ocrRequiredTypes = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

var allowedTypes = map[string]struct{}{
	"txt": {}, "md": {}, "csv": {}, "log": {},
	"pdf": {}, "png": {}, "jpg": {}, "jpeg": {},
}

type IngestFileUseCase struct {
	repo           ports.SourceFileRepository
	storage        ports.ObjectStorage
	queue          ports.JobQueue
	maxUploadBytes int64
}

func NewIngestFileUseCase(
	repo ports.SourceFileRepository,
	storage ports.ObjectStorage,
	queue ports.JobQueue,
	maxUploadBytes int64,
) *IngestFileUseCase {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &IngestFileUseCase{
		repo:           repo,
		storage:        storage,
		queue:          queue,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload stores the document, creates the SourceFile row in QUEUED state and
// only then enqueues the processing job, so a worker can never see a job for
// a row that does not exist yet.
func (uc *IngestFileUseCase) Upload(
	ctx context.Context,
	originalName, uploadedBy string,
	size int64,
	body io.Reader,
) (*domain.SourceFile, error) {
	fileType := fileTypeOf(originalName)
	if _, ok := allowedTypes[fileType]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("unsupported file type %q", fileType))
	}
	if size > uc.maxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("file size %d exceeds limit %d", size, uc.maxUploadBytes))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(originalName))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	ocrStatus := domain.OCRNotRequired
	if _, required := ocrRequiredTypes[fileType]; required {
		ocrStatus = domain.OCRPending
	}

	file := &domain.SourceFile{
		ID:           id,
		OriginalName: originalName,
		StorageKey:   storageKey,
		FileType:     fileType,
		FileSize:     size,
		UploadedBy:   uploadedBy,
		Status:       domain.StatusQueued,
		OCRStatus:    ocrStatus,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("create source file record: %w", err)
	}

	if err := uc.queue.Enqueue(ctx, file.ID); err != nil {
		return nil, fmt.Errorf("enqueue processing job: %w", err)
	}

	return file, nil
}

func fileTypeOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
