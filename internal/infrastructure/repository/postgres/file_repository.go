package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FileRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS source_files (
	id TEXT PRIMARY KEY,
	original_name TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	uploaded_by TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	ocr_status TEXT NOT NULL,
	extracted_text TEXT,
	ocr_processed_at TIMESTAMPTZ,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_source_files_status ON source_files(status);
CREATE INDEX IF NOT EXISTS idx_source_files_created_at ON source_files(created_at DESC);

CREATE TABLE IF NOT EXISTS cleaned_records (
	id TEXT PRIMARY KEY,
	source_file_id TEXT NOT NULL REFERENCES source_files(id),
	cleaned_text TEXT NOT NULL,
	category TEXT NOT NULL,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	quality_score DOUBLE PRECISION NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	review_status TEXT NOT NULL,
	cleaning_ops JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cleaned_records_source_file ON cleaned_records(source_file_id);
CREATE INDEX IF NOT EXISTS idx_cleaned_records_review_status ON cleaned_records(review_status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(ctx context.Context, file *domain.SourceFile) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO source_files (
	id, original_name, storage_key, file_type, file_size, uploaded_by, status, ocr_status, extracted_text, ocr_processed_at, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		file.ID, file.OriginalName, file.StorageKey, file.FileType, file.FileSize, file.UploadedBy,
		string(file.Status), string(file.OCRStatus), nullString(file.ExtractedText), file.OCRProcessedAt,
		nullString(file.ErrorMessage), file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.SourceFile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, original_name, storage_key, file_type, file_size, uploaded_by, status, ocr_status, extracted_text, ocr_processed_at, error_message, created_at, updated_at
FROM source_files
WHERE id = $1
`, id)

	var file domain.SourceFile
	var status, ocrStatus string
	var extractedText, errorMessage sql.NullString
	var ocrProcessedAt sql.NullTime

	err := row.Scan(
		&file.ID, &file.OriginalName, &file.StorageKey, &file.FileType, &file.FileSize, &file.UploadedBy,
		&status, &ocrStatus, &extractedText, &ocrProcessedAt, &errorMessage, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFileNotFound, "get source file", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan source file: %w", err)
	}

	file.Status = domain.ProcessingStatus(status)
	file.OCRStatus = domain.OCRStatus(ocrStatus)
	file.ExtractedText = extractedText.String
	file.ErrorMessage = errorMessage.String
	if ocrProcessedAt.Valid {
		t := ocrProcessedAt.Time
		file.OCRProcessedAt = &t
	}
	return &file, nil
}

func (r *FileRepository) UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE source_files
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), nullString(errMessage), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update source file status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update source file status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrFileNotFound, "update source file status", fmt.Errorf("id %s", id))
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
