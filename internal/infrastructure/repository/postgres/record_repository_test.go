package postgres

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

func newRecordMock(t *testing.T) (*RecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewRecordRepository(db), mock
}

func TestListByReviewStatus(t *testing.T) {
	repo, mock := newRecordMock(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "source_file_id", "cleaned_text", "category", "keywords",
		"quality_score", "confidence_score", "review_status", "cleaning_ops", "created_at",
	}).AddRow("rec-1", "file-1", "clean text", "finance", []byte(`["invoice","payment"]`),
		0.8, 0.6, "PENDING", []byte(`{"original_length":20,"cleaned_length":10}`), now)

	mock.ExpectQuery(`SELECT .+ FROM cleaned_records`).
		WithArgs("PENDING", 25).
		WillReturnRows(rows)

	records, err := repo.ListByReviewStatus(context.Background(), domain.ReviewPending, 25)
	if err != nil {
		t.Fatalf("ListByReviewStatus() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if !reflect.DeepEqual(rec.Keywords, []string{"invoice", "payment"}) {
		t.Fatalf("Keywords = %v", rec.Keywords)
	}
	if rec.CleaningOps.OriginalLength != 20 || rec.CleaningOps.CleanedLength != 10 {
		t.Fatalf("CleaningOps = %+v", rec.CleaningOps)
	}
	if rec.ReviewStatus != domain.ReviewPending {
		t.Fatalf("ReviewStatus = %q", rec.ReviewStatus)
	}
}

func TestListByReviewStatusDefaultLimit(t *testing.T) {
	repo, mock := newRecordMock(t)

	mock.ExpectQuery(`SELECT .+ FROM cleaned_records`).
		WithArgs("APPROVED", 500).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source_file_id", "cleaned_text", "category", "keywords",
			"quality_score", "confidence_score", "review_status", "cleaning_ops", "created_at",
		}))

	records, err := repo.ListByReviewStatus(context.Background(), domain.ReviewApproved, 0)
	if err != nil {
		t.Fatalf("ListByReviewStatus() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
