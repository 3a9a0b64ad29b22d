package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

type statusCall struct {
	status domain.ProcessingStatus
	errMsg string
}

type processRepoFake struct {
	file        *domain.SourceFile
	getErr      error
	statusErr   error
	statusCalls []statusCall
}

func (f *processRepoFake) Create(context.Context, *domain.SourceFile) error { return nil }

func (f *processRepoFake) GetByID(context.Context, string) (*domain.SourceFile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyFile := *f.file
	return &copyFile, nil
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.ProcessingStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

type storageFake struct {
	data []byte
	err  error
}

func (f *storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (f *storageFake) Fetch(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type ocrFake struct {
	text  string
	err   error
	calls int
}

func (f *ocrFake) ExtractText(context.Context, string, []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type cleanerFake struct {
	out string
}

func (f *cleanerFake) Clean(text string) (string, domain.CleaningOps) {
	if f.out != "" {
		return f.out, domain.CleaningOps{OriginalLength: len(text), CleanedLength: len(f.out)}
	}
	return text, domain.CleaningOps{OriginalLength: len(text), CleanedLength: len(text)}
}

type classifierFake struct {
	cls domain.Classification
}

func (f *classifierFake) Classify(string) domain.Classification { return f.cls }

type scorerFake struct {
	quality    float64
	confidence float64
}

func (f *scorerFake) Score(string, string, domain.Classification) (float64, float64) {
	return f.quality, f.confidence
}

type committerFake struct {
	err     error
	commits []domain.PipelineResult
	files   []*domain.SourceFile
}

func (f *committerFake) Commit(_ context.Context, file *domain.SourceFile, result domain.PipelineResult) error {
	if f.err != nil {
		return f.err
	}
	f.commits = append(f.commits, result)
	f.files = append(f.files, file)
	return nil
}

type notifierFake struct {
	events []statusCall
}

func (f *notifierFake) FileProcessed(_ context.Context, _ string, status domain.ProcessingStatus, errMessage string, _ time.Time) {
	f.events = append(f.events, statusCall{status: status, errMsg: errMessage})
}

type processDeps struct {
	repo      *processRepoFake
	storage   *storageFake
	ocr       *ocrFake
	committer *committerFake
	notifier  *notifierFake
}

func newProcessUC(t *testing.T, deps processDeps, maxAttempts int) *ProcessFileUseCase {
	t.Helper()
	if deps.repo == nil {
		deps.repo = &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	}
	if deps.storage == nil {
		deps.storage = &storageFake{data: []byte("hello pipeline world")}
	}
	if deps.ocr == nil {
		deps.ocr = &ocrFake{text: "ocr text"}
	}
	if deps.committer == nil {
		deps.committer = &committerFake{}
	}
	if deps.notifier == nil {
		deps.notifier = &notifierFake{}
	}
	return NewProcessFileUseCase(
		deps.repo,
		deps.storage,
		deps.ocr,
		&cleanerFake{},
		&classifierFake{cls: domain.Classification{Category: "general", Keywords: []string{"hello"}, Confidence: 0.5}},
		&scorerFake{quality: 0.8, confidence: 0.5},
		deps.committer,
		deps.notifier,
		maxAttempts,
		nil,
	)
}

func TestProcessSuccess(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	committer := &committerFake{}
	notifier := &notifierFake{}
	uc := newProcessUC(t, processDeps{repo: repo, committer: committer, notifier: notifier}, 3)

	if err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusProcessing {
		t.Fatalf("expected single transition to PROCESSING, got %+v", repo.statusCalls)
	}
	if len(committer.commits) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(committer.commits))
	}
	if committer.commits[0].ExtractedText != "hello pipeline world" {
		t.Fatalf("unexpected extracted text %q", committer.commits[0].ExtractedText)
	}
	if len(notifier.events) != 1 || notifier.events[0].status != domain.StatusCompleted {
		t.Fatalf("expected completed notification, got %+v", notifier.events)
	}
}

func TestProcessSkipsOCRForPlainText(t *testing.T) {
	ocr := &ocrFake{text: "should not be used"}
	committer := &committerFake{}
	uc := newProcessUC(t, processDeps{ocr: ocr, committer: committer}, 3)

	if err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if ocr.calls != 0 {
		t.Fatalf("expected no OCR calls for NOT_REQUIRED file, got %d", ocr.calls)
	}
}

func TestProcessUsesOCRWhenPending(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "pdf", Status: domain.StatusQueued, OCRStatus: domain.OCRPending}}
	ocr := &ocrFake{text: "recognized text"}
	committer := &committerFake{}
	uc := newProcessUC(t, processDeps{repo: repo, ocr: ocr, committer: committer}, 3)

	if err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if ocr.calls != 1 {
		t.Fatalf("expected one OCR call, got %d", ocr.calls)
	}
	if committer.commits[0].ExtractedText != "recognized text" {
		t.Fatalf("expected OCR output committed, got %q", committer.commits[0].ExtractedText)
	}
}

func TestProcessFetchFailureWithAttemptsLeftRequestsRedelivery(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	storage := &storageFake{err: domain.WrapError(domain.ErrFetch, "open object", errors.New("no such object"))}
	committer := &committerFake{}
	uc := newProcessUC(t, processDeps{repo: repo, storage: storage, committer: committer}, 3)

	err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("attempt 1 of 3 must not be terminal: %v", err)
	}
	if !domain.IsKind(err, domain.ErrFetch) {
		t.Fatalf("expected fetch kind, got %v", err)
	}
	// File stays PROCESSING between attempts; ERROR only on exhaustion.
	for _, call := range repo.statusCalls {
		if call.status == domain.StatusError {
			t.Fatalf("premature ERROR transition: %+v", repo.statusCalls)
		}
	}
	if len(committer.commits) != 0 {
		t.Fatalf("expected no commit on fetch failure")
	}
}

func TestProcessFetchFailureOnFinalAttemptMarksError(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	storage := &storageFake{err: domain.WrapError(domain.ErrFetch, "open object", errors.New("no such object"))}
	committer := &committerFake{}
	notifier := &notifierFake{}
	uc := newProcessUC(t, processDeps{repo: repo, storage: storage, committer: committer, notifier: notifier}, 3)

	err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 3})
	if !domain.IsKind(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.StatusError {
		t.Fatalf("expected ERROR status, got %+v", repo.statusCalls)
	}
	if last.errMsg == "" || !strings.Contains(last.errMsg, "no such object") {
		t.Fatalf("expected last error message retained, got %q", last.errMsg)
	}
	if len(committer.commits) != 0 {
		t.Fatalf("expected no cleaned record on failure")
	}
	if len(notifier.events) != 1 || notifier.events[0].status != domain.StatusError {
		t.Fatalf("expected error notification, got %+v", notifier.events)
	}
}

func TestProcessExtractionFailureExhaustionRetainsMessage(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "pdf", Status: domain.StatusQueued, OCRStatus: domain.OCRPending}}
	ocr := &ocrFake{err: errors.New("ocr backend unavailable")}
	uc := newProcessUC(t, processDeps{repo: repo, ocr: ocr}, 2)

	err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 2})
	if !domain.IsKind(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.StatusError || !strings.Contains(last.errMsg, "ocr backend unavailable") {
		t.Fatalf("expected extraction error message retained, got %+v", last)
	}
}

func TestProcessCommitFailureNeverMarksError(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	committer := &committerFake{err: domain.WrapError(domain.ErrCommit, "commit result tx", errors.New("db gone"))}
	uc := newProcessUC(t, processDeps{repo: repo, committer: committer}, 3)

	err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("commit failure with attempts left must be retryable: %v", err)
	}
	for _, call := range repo.statusCalls {
		if call.status == domain.StatusError {
			t.Fatalf("commit failure must not mark ERROR: %+v", repo.statusCalls)
		}
	}
}

func TestProcessCommitFailureOnFinalAttemptTerminatesWithoutError(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	committer := &committerFake{err: domain.WrapError(domain.ErrCommit, "commit result tx", errors.New("db gone"))}
	uc := newProcessUC(t, processDeps{repo: repo, committer: committer}, 3)

	err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 3})
	if !domain.IsKind(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	// The file keeps its prior status even when commit retries run out.
	for _, call := range repo.statusCalls {
		if call.status == domain.StatusError {
			t.Fatalf("commit exhaustion must not mark ERROR: %+v", repo.statusCalls)
		}
	}
}

func TestProcessRetrySucceedsAfterCommitFailure(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	committer := &committerFake{err: domain.WrapError(domain.ErrCommit, "commit result tx", errors.New("db gone"))}
	uc := newProcessUC(t, processDeps{repo: repo, committer: committer}, 3)

	if err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1}); err == nil {
		t.Fatalf("expected first attempt to fail")
	}

	committer.err = nil
	if err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 2}); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if len(committer.commits) != 1 {
		t.Fatalf("expected exactly one committed record after retry, got %d", len(committer.commits))
	}
}

func TestProcessSkipsTerminalFile(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", Status: domain.StatusCompleted, OCRStatus: domain.OCRNotRequired}}
	committer := &committerFake{}
	uc := newProcessUC(t, processDeps{repo: repo, committer: committer}, 3)

	if err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 2}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("terminal file must not transition, got %+v", repo.statusCalls)
	}
	if len(committer.commits) != 0 {
		t.Fatalf("terminal file must not be committed again")
	}
}

func TestProcessMissingFileIsTerminal(t *testing.T) {
	repo := &processRepoFake{getErr: domain.WrapError(domain.ErrFileNotFound, "get source file", errors.New("id file-1"))}
	uc := newProcessUC(t, processDeps{repo: repo}, 3)

	err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1})
	if !domain.IsKind(err, domain.ErrAttemptsExhausted) {
		t.Fatalf("expected terminal error for missing file, got %v", err)
	}
}

func TestProcessBinaryContentWithoutOCRFailsExtraction(t *testing.T) {
	repo := &processRepoFake{file: &domain.SourceFile{ID: "file-1", StorageKey: "k", FileType: "txt", Status: domain.StatusQueued, OCRStatus: domain.OCRNotRequired}}
	storage := &storageFake{data: []byte{0xff, 0xfe, 0x01}}
	uc := newProcessUC(t, processDeps{repo: repo, storage: storage}, 3)

	err := uc.Process(context.Background(), domain.Job{FileID: "file-1", Attempt: 1})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction kind for binary content, got %v", err)
	}
}
