package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	// Pipeline stage failures. The worker maps these onto the SourceFile's
	// error message and the queue's ack/nak decision.
	ErrFetch          = errors.New("fetch failed")
	ErrExtraction     = errors.New("extraction failed")
	ErrCleaning       = errors.New("cleaning failed")
	ErrClassification = errors.New("classification failed")
	ErrScoring        = errors.New("scoring failed")
	ErrCommit         = errors.New("commit failed")

	// ErrAttemptsExhausted marks a job that must not be redelivered. The
	// queue adapter translates it into a terminal acknowledgment.
	ErrAttemptsExhausted = errors.New("attempts exhausted")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// StageName names the pipeline stage a failure belongs to, for logs, metrics
// and the operator-facing error message.
func StageName(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrCleaning):
		return "cleaning"
	case errors.Is(err, ErrClassification):
		return "classification"
	case errors.Is(err, ErrScoring):
		return "scoring"
	case errors.Is(err, ErrCommit):
		return "commit"
	default:
		return "unknown"
	}
}
