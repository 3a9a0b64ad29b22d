package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vthnguyen/docstream/internal/core/domain"
	"github.com/vthnguyen/docstream/internal/core/ports"
)

// ProcessFileUseCase runs the per-file pipeline for one job delivery:
// fetch, extraction, cleaning, classification, scoring, then the atomic
// commit. The returned error drives the queue acknowledgment: nil acks the
// job, domain.ErrAttemptsExhausted terminates it, anything else requests
// redelivery.
type ProcessFileUseCase struct {
	repo        ports.SourceFileRepository
	storage     ports.ObjectStorage
	extractor   ports.OCRExtractor
	cleaner     ports.TextCleaner
	classifier  ports.Classifier
	scorer      ports.Scorer
	committer   ports.ResultCommitter
	notifier    ports.Notifier
	maxAttempts int
	logger      *slog.Logger
}

func NewProcessFileUseCase(
	repo ports.SourceFileRepository,
	storage ports.ObjectStorage,
	extractor ports.OCRExtractor,
	cleaner ports.TextCleaner,
	classifier ports.Classifier,
	scorer ports.Scorer,
	committer ports.ResultCommitter,
	notifier ports.Notifier,
	maxAttempts int,
	logger *slog.Logger,
) *ProcessFileUseCase {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessFileUseCase{
		repo:        repo,
		storage:     storage,
		extractor:   extractor,
		cleaner:     cleaner,
		classifier:  classifier,
		scorer:      scorer,
		committer:   committer,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (uc *ProcessFileUseCase) Process(ctx context.Context, job domain.Job) error {
	file, err := uc.repo.GetByID(ctx, job.FileID)
	if err != nil {
		if domain.IsKind(err, domain.ErrFileNotFound) {
			// A job with no backing row cannot succeed on redelivery.
			uc.logger.Error("job references missing file", "file_id", job.FileID)
			return domain.WrapError(domain.ErrAttemptsExhausted, "load file", err)
		}
		return fmt.Errorf("load file: %w", err)
	}

	// Redelivery after a terminal state is a no-op; the state machine never
	// leaves COMPLETED or ERROR.
	if file.Status == domain.StatusCompleted || file.Status == domain.StatusError {
		uc.logger.Info("skipping job for terminal file",
			"file_id", file.ID, "status", string(file.Status))
		return nil
	}

	if err := uc.repo.UpdateStatus(ctx, file.ID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.runPipeline(ctx, file)
	if err != nil {
		return uc.failStage(ctx, job, file, err)
	}

	if err := uc.committer.Commit(ctx, file, result); err != nil {
		// No terminal state change has been observably attempted, so the
		// file keeps its prior status and the queue's retry governs what
		// happens next. Never ERROR on a commit failure.
		if job.Attempt >= uc.maxAttempts {
			uc.logger.Error("commit failed on final attempt, leaving file for operator",
				"file_id", file.ID, "attempt", job.Attempt, "error", err)
			return domain.WrapError(domain.ErrAttemptsExhausted, "commit result", err)
		}
		return err
	}

	uc.logger.Info("file processed",
		"file_id", file.ID,
		"category", result.Category,
		"quality", result.QualityScore,
		"confidence", result.ConfidenceScore,
		"attempt", job.Attempt,
	)
	uc.notifier.FileProcessed(ctx, file.ID, domain.StatusCompleted, "", time.Now().UTC())
	return nil
}

// failStage handles a pipeline stage failure: with attempts left the job is
// redelivered and the file stays PROCESSING; once attempts are exhausted the
// file reaches terminal ERROR with the last error's message.
func (uc *ProcessFileUseCase) failStage(ctx context.Context, job domain.Job, file *domain.SourceFile, stageErr error) error {
	uc.logger.Warn("pipeline stage failed",
		"file_id", file.ID,
		"stage", domain.StageName(stageErr),
		"attempt", job.Attempt,
		"max_attempts", uc.maxAttempts,
		"error", stageErr,
	)

	if job.Attempt < uc.maxAttempts {
		return stageErr
	}

	if err := uc.repo.UpdateStatus(ctx, file.ID, domain.StatusError, stageErr.Error()); err != nil {
		// Could not record the terminal state; redeliver so a later attempt
		// can write it.
		return fmt.Errorf("%w; mark error status: %w", stageErr, err)
	}
	uc.notifier.FileProcessed(ctx, file.ID, domain.StatusError, stageErr.Error(), time.Now().UTC())
	return domain.WrapError(domain.ErrAttemptsExhausted, "pipeline", stageErr)
}

func (uc *ProcessFileUseCase) runPipeline(ctx context.Context, file *domain.SourceFile) (domain.PipelineResult, error) {
	data, err := uc.fetch(ctx, file)
	if err != nil {
		return domain.PipelineResult{}, err
	}

	extracted, err := uc.extract(ctx, file, data)
	if err != nil {
		return domain.PipelineResult{}, err
	}

	cleaned, ops, err := uc.clean(extracted)
	if err != nil {
		return domain.PipelineResult{}, err
	}

	cls, err := uc.classify(cleaned)
	if err != nil {
		return domain.PipelineResult{}, err
	}

	quality, confidence, err := uc.score(extracted, cleaned, cls)
	if err != nil {
		return domain.PipelineResult{}, err
	}

	return domain.PipelineResult{
		ExtractedText:   extracted,
		CleanedText:     cleaned,
		Category:        cls.Category,
		Keywords:        cls.Keywords,
		QualityScore:    quality,
		ConfidenceScore: confidence,
		CleaningOps:     ops,
	}, nil
}

func (uc *ProcessFileUseCase) fetch(ctx context.Context, file *domain.SourceFile) ([]byte, error) {
	data, err := uc.storage.Fetch(ctx, file.StorageKey)
	if err != nil {
		if !domain.IsKind(err, domain.ErrFetch) {
			err = domain.WrapError(domain.ErrFetch, "fetch object", err)
		}
		return nil, err
	}
	return data, nil
}

func (uc *ProcessFileUseCase) extract(ctx context.Context, file *domain.SourceFile, data []byte) (string, error) {
	var text string
	var err error
	if file.OCRRequired() {
		text, err = uc.extractor.ExtractText(ctx, file.FileType, data)
	} else {
		text, err = decodePlainText(data)
	}
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessFileUseCase) clean(extracted string) (string, domain.CleaningOps, error) {
	cleaned, ops := uc.cleaner.Clean(extracted)
	if cleaned == "" {
		return "", domain.CleaningOps{}, domain.WrapError(domain.ErrCleaning, "clean text",
			errors.New("cleaning produced empty text"))
	}
	return cleaned, ops, nil
}

func (uc *ProcessFileUseCase) classify(cleaned string) (domain.Classification, error) {
	cls := uc.classifier.Classify(cleaned)
	if cls.Category == "" {
		return domain.Classification{}, domain.WrapError(domain.ErrClassification, "classify text",
			errors.New("classifier returned empty category"))
	}
	return cls, nil
}

func (uc *ProcessFileUseCase) score(extracted, cleaned string, cls domain.Classification) (float64, float64, error) {
	quality, confidence := uc.scorer.Score(extracted, cleaned, cls)
	if quality < 0 || quality > 1 || confidence < 0 || confidence > 1 {
		return 0, 0, domain.WrapError(domain.ErrScoring, "score result",
			fmt.Errorf("scores out of range: quality=%f confidence=%f", quality, confidence))
	}
	return quality, confidence, nil
}
