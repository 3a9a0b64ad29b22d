package domain

import "time"

type ProcessingStatus string

const (
	StatusQueued     ProcessingStatus = "QUEUED"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusError      ProcessingStatus = "ERROR"
)

type OCRStatus string

const (
	OCRNotRequired OCRStatus = "NOT_REQUIRED"
	OCRPending     OCRStatus = "PENDING"
	OCRCompleted   OCRStatus = "COMPLETED"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

// SourceFile is the persistent record of one uploaded document. It is created
// by the upload flow in StatusQueued and mutated only by the worker afterwards.
type SourceFile struct {
	ID             string           `json:"id"`
	OriginalName   string           `json:"original_name"`
	StorageKey     string           `json:"storage_key"`
	FileType       string           `json:"file_type"`
	FileSize       int64            `json:"file_size"`
	UploadedBy     string           `json:"uploaded_by"`
	Status         ProcessingStatus `json:"status"`
	OCRStatus      OCRStatus        `json:"ocr_status"`
	ExtractedText  string           `json:"extracted_text,omitempty"`
	OCRProcessedAt *time.Time       `json:"ocr_processed_at,omitempty"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// OCRRequired reports whether the extraction stage must go through the OCR
// backend. The decision is made once, at upload time, from the file type.
func (f *SourceFile) OCRRequired() bool {
	return f.OCRStatus == OCRPending
}

// CleanedRecord is the derived record produced by one successful pipeline run,
// inserted in the same transaction that completes the owning SourceFile.
type CleanedRecord struct {
	ID              string       `json:"id"`
	SourceFileID    string       `json:"source_file_id"`
	CleanedText     string       `json:"cleaned_text"`
	Category        string       `json:"category"`
	Keywords        []string     `json:"keywords"`
	QualityScore    float64      `json:"quality_score"`
	ConfidenceScore float64      `json:"confidence_score"`
	ReviewStatus    ReviewStatus `json:"review_status"`
	CleaningOps     CleaningOps  `json:"cleaning_ops"`
	CreatedAt       time.Time    `json:"created_at"`
}

// CleaningOps describes the transformations the cleaning stage applied, kept
// alongside the cleaned text for review and debugging.
type CleaningOps struct {
	WhitespaceCollapsed bool `json:"whitespace_collapsed"`
	ControlCharsRemoved int  `json:"control_chars_removed"`
	NoiseTokensRemoved  int  `json:"noise_tokens_removed"`
	LinesDropped        int  `json:"lines_dropped"`
	OriginalLength      int  `json:"original_length"`
	CleanedLength       int  `json:"cleaned_length"`
}

// PipelineResult carries the output of a full pipeline run to the committer.
// It exists only in memory for the duration of one job.
type PipelineResult struct {
	ExtractedText   string
	CleanedText     string
	Category        string
	Keywords        []string
	QualityScore    float64
	ConfidenceScore float64
	CleaningOps     CleaningOps
}

// Classification is the output of the classification stage.
type Classification struct {
	Category   string
	Keywords   []string
	Confidence float64
}
