package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vthnguyen/docstream/internal/core/domain"
	"github.com/vthnguyen/docstream/internal/core/ports"
)

// ExportRecordsUseCase produces an XLSX workbook of cleaned records awaiting
// human review.
type ExportRecordsUseCase struct {
	records      ports.CleanedRecordReader
	defaultLimit int
}

func NewExportRecordsUseCase(records ports.CleanedRecordReader, defaultLimit int) *ExportRecordsUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 500
	}
	return &ExportRecordsUseCase{records: records, defaultLimit: defaultLimit}
}

const exportSheet = "Pending Review"

func (uc *ExportRecordsUseCase) ExportPendingReview(ctx context.Context, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = uc.defaultLimit
	}
	records, err := uc.records.ListByReviewStatus(ctx, domain.ReviewPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{"Record ID", "Source File ID", "Category", "Keywords", "Quality", "Confidence", "Created At", "Cleaned Text"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, rec := range records {
		values := []any{
			rec.ID,
			rec.SourceFileID,
			rec.Category,
			strings.Join(rec.Keywords, ", "),
			rec.QualityScore,
			rec.ConfidenceScore,
			rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			truncate(rec.CleanedText, 32000),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write record %s: %w", rec.ID, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Excel rejects cells longer than 32767 characters.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
