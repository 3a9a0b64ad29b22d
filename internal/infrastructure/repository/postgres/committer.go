package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

// Committer persists one pipeline run as a single transaction: the source
// file reaches COMPLETED and exactly one cleaned record is inserted. A commit
// failure leaves the file in its prior state so the queue can retry.
type Committer struct {
	db *sql.DB
}

func NewCommitter(db *sql.DB) *Committer {
	return &Committer{db: db}
}

func (c *Committer) Commit(ctx context.Context, file *domain.SourceFile, result domain.PipelineResult) error {
	keywordsJSON, err := json.Marshal(keywordsOrEmpty(result.Keywords))
	if err != nil {
		return domain.WrapError(domain.ErrCommit, "marshal keywords", err)
	}
	opsJSON, err := json.Marshal(result.CleaningOps)
	if err != nil {
		return domain.WrapError(domain.ErrCommit, "marshal cleaning ops", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrCommit, "begin commit tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()

	if file.OCRRequired() {
		_, err = tx.ExecContext(ctx, `
UPDATE source_files
SET status = $2, extracted_text = $3, error_message = NULL, ocr_status = $4, ocr_processed_at = $5, updated_at = $6
WHERE id = $1
`, file.ID, string(domain.StatusCompleted), result.ExtractedText, string(domain.OCRCompleted), now, now)
	} else {
		_, err = tx.ExecContext(ctx, `
UPDATE source_files
SET status = $2, extracted_text = $3, error_message = NULL, updated_at = $4
WHERE id = $1
`, file.ID, string(domain.StatusCompleted), result.ExtractedText, now)
	}
	if err != nil {
		return domain.WrapError(domain.ErrCommit, "complete source file", err)
	}

	// A redelivery can race a slow still-running worker for the same file.
	// Last committer wins: replace any record a concurrent run left behind so
	// a completed file always has exactly one cleaned record.
	if _, err := tx.ExecContext(ctx, `
DELETE FROM cleaned_records WHERE source_file_id = $1
`, file.ID); err != nil {
		return domain.WrapError(domain.ErrCommit, "replace cleaned record", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO cleaned_records (
	id, source_file_id, cleaned_text, category, keywords, quality_score, confidence_score, review_status, cleaning_ops, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		uuid.NewString(), file.ID, result.CleanedText, result.Category, keywordsJSON,
		result.QualityScore, result.ConfidenceScore, string(domain.ReviewPending), opsJSON, now,
	); err != nil {
		return domain.WrapError(domain.ErrCommit, "insert cleaned record", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrCommit, "commit result tx", err)
	}
	return nil
}

func keywordsOrEmpty(keywords []string) []string {
	if keywords == nil {
		return []string{}
	}
	return keywords
}
