package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) ListByReviewStatus(ctx context.Context, status domain.ReviewStatus, limit int) ([]domain.CleanedRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, source_file_id, cleaned_text, category, keywords, quality_score, confidence_score, review_status, cleaning_ops, created_at
FROM cleaned_records
WHERE review_status = $1
ORDER BY created_at ASC
LIMIT $2
`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list cleaned records: %w", err)
	}
	defer rows.Close()

	var out []domain.CleanedRecord
	for rows.Next() {
		var rec domain.CleanedRecord
		var reviewStatus string
		var keywordsRaw, opsRaw []byte

		err := rows.Scan(
			&rec.ID, &rec.SourceFileID, &rec.CleanedText, &rec.Category, &keywordsRaw,
			&rec.QualityScore, &rec.ConfidenceScore, &reviewStatus, &opsRaw, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cleaned record: %w", err)
		}
		if err := json.Unmarshal(keywordsRaw, &rec.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", err)
		}
		if err := json.Unmarshal(opsRaw, &rec.CleaningOps); err != nil {
			return nil, fmt.Errorf("unmarshal cleaning ops: %w", err)
		}
		rec.ReviewStatus = domain.ReviewStatus(reviewStatus)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cleaned records: %w", err)
	}
	return out, nil
}
