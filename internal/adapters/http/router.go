package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vthnguyen/docstream/internal/core/domain"
	"github.com/vthnguyen/docstream/internal/core/ports"
	"github.com/vthnguyen/docstream/internal/observability/metrics"
)

const serviceName = "docstream-api"

type Router struct {
	ingestUC ports.FileIngestor
	exportUC ports.RecordExporter
	repo     ports.SourceFileRepository
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	ingestUC ports.FileIngestor,
	exportUC ports.RecordExporter,
	repo ports.SourceFileRepository,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingestUC: ingestUC,
		exportUC: exportUC,
		repo:     repo,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/files", rt.uploadFile)
	mux.HandleFunc("/v1/files/", rt.getFileByID)
	mux.HandleFunc("/v1/records/export", rt.exportRecords)
	mux.Handle("/metrics", rt.metrics.Handler())

	handler := rt.metrics.Middleware(serviceName, mux)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadFile accepts a multipart upload and answers 202: the row is QUEUED
// and a processing job is on the queue, processing happens asynchronously.
func (rt *Router) uploadFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	uploadedBy := strings.TrimSpace(r.FormValue("uploaded_by"))

	created, err := rt.ingestUC.Upload(r.Context(), fileHeader.Filename, uploadedBy, fileHeader.Size, file)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	rt.metrics.RecordUpload(serviceName, created.FileType, created.OCRRequired())
	writeJSON(w, http.StatusAccepted, created)
}

func (rt *Router) getFileByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/files/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file id is required"})
		return
	}

	file, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		if domain.IsKind(err, domain.ErrFileNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (rt *Router) exportRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	workbook, err := rt.exportUC.ExportPendingReview(r.Context(), 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	rt.metrics.RecordExport(serviceName)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="pending-review.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
