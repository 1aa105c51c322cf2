package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/export"
	"github.com/kremlit/email-enricher/internal/ingest"
	"github.com/kremlit/email-enricher/internal/service"
)

// BatchServiceInterface defines the batch service methods
type BatchServiceInterface interface {
	Create(ctx context.Context, req *domain.CreateBatchRequest) (*domain.Batch, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	List(ctx context.Context, params domain.BatchListParams) ([]*domain.Batch, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Pause(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	Resume(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	Outcomes(ctx context.Context, id uuid.UUID, limit, offset int) ([]*domain.VerificationOutcome, int, error)
	GetStats(ctx context.Context) (*domain.BatchStats, error)
}

// MaxUploadSize limits batch uploads (20MB)
const MaxUploadSize = 20 << 20

// BatchHandler handles batch-related HTTP requests
type BatchHandler struct {
	batches BatchServiceInterface
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batches BatchServiceInterface) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// Create handles POST /api/v1/batches with a JSON body
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	var req domain.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.create(w, r, &req)
}

// Upload handles POST /api/v1/batches/upload with a multipart CSV/XLSX
// file. Columns are detected from headers and content.
func (h *BatchHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	var table *ingest.Table

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		table, err = ingest.ReadCSV(file)
	case ".xlsx", ".xls":
		table, err = ingest.ReadXLSX(file)
	default:
		RenderError(w, http.StatusBadRequest, "Unsupported file format, use CSV or XLSX")
		return
	}

	if err != nil {
		log.Printf("[BatchHandler] upload parse failed: %v", err)
		RenderError(w, http.StatusBadRequest, "Failed to parse file: "+err.Error())
		return
	}

	mapping := ingest.DetectColumns(table)

	contacts, err := ingest.Contacts(table, mapping)
	if err != nil {
		RenderError(w, http.StatusUnprocessableEntity,
			"Could not detect name and company columns")
		return
	}

	req := &domain.CreateBatchRequest{
		Name: header.Filename,
		Rows: contacts,
	}

	if v := r.FormValue("name"); v != "" {
		req.Name = v
	}
	if v := r.FormValue("concurrency"); v != "" {
		req.Concurrency, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("probe_delay_ms"); v != "" {
		req.ProbeDelayMS, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("priority"); v != "" {
		req.Priority, _ = strconv.Atoi(v)
	}
	req.FindProfiles = r.FormValue("find_profiles") == "true"

	h.create(w, r, req)
}

func (h *BatchHandler) create(w http.ResponseWriter, r *http.Request, req *domain.CreateBatchRequest) {
	batch, err := h.batches.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrBatchEmpty) {
			RenderError(w, http.StatusUnprocessableEntity, "No rows with firstname, lastname and company URL")
			return
		}

		log.Printf("[BatchHandler] create failed: %v", err)
		RenderError(w, http.StatusInternalServerError, "Failed to create batch")
		return
	}

	RenderJSON(w, http.StatusCreated, batch)
}

// List handles GET /api/v1/batches
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	params := domain.BatchListParams{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.BatchStatus(s)
		params.Status = &status
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	params.Limit = perPage
	params.Offset = (page - 1) * perPage

	batches, total, err := h.batches.List(r.Context(), params)
	if err != nil {
		log.Printf("[BatchHandler] list failed: %v", err)
		RenderError(w, http.StatusInternalServerError, "Failed to list batches")
		return
	}

	RenderJSON(w, http.StatusOK, NewPaginatedResponse(batches, total, page, perPage))
}

// GetByID handles GET /api/v1/batches/{id}
func (h *BatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseBatchID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	batch, err := h.batches.GetByID(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, batch)
}

// Delete handles DELETE /api/v1/batches/{id}
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseBatchID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	if err := h.batches.Delete(r.Context(), id); err != nil {
		h.renderServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Pause handles POST /api/v1/batches/{id}/pause
func (h *BatchHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batches.Pause)
}

// Resume handles POST /api/v1/batches/{id}/resume
func (h *BatchHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batches.Resume)
}

// Cancel handles POST /api/v1/batches/{id}/cancel
func (h *BatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batches.Cancel)
}

func (h *BatchHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*domain.Batch, error)) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := parseBatchID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	batch, err := fn(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, batch)
}

// Outcomes handles GET /api/v1/batches/{id}/outcomes
func (h *BatchHandler) Outcomes(w http.ResponseWriter, r *http.Request) {
	id, err := parseBatchID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 500 {
		perPage = 100
	}

	outcomes, total, err := h.batches.Outcomes(r.Context(), id, perPage, (page-1)*perPage)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, NewPaginatedResponse(outcomes, total, page, perPage))
}

// Download handles GET /api/v1/batches/{id}/download?format=csv|xlsx
func (h *BatchHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseBatchID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	// Outcome tables are small enough to export in one read.
	outcomes, _, err := h.batches.Outcomes(r.Context(), id, 1_000_000, 0)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	columns := export.SelectColumns(r.URL.Query().Get("columns"))

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=batch-%s.csv", id))

		if err := export.WriteCSV(w, outcomes, columns); err != nil {
			log.Printf("[BatchHandler] CSV export failed: %v", err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=batch-%s.xlsx", id))

		if err := export.WriteXLSX(w, outcomes, columns); err != nil {
			log.Printf("[BatchHandler] XLSX export failed: %v", err)
		}
	default:
		RenderError(w, http.StatusBadRequest, "Invalid format. Use 'csv' or 'xlsx'")
	}
}

// GetStats handles GET /api/v1/batches/stats
func (h *BatchHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.batches.GetStats(r.Context())
	if err != nil {
		log.Printf("[BatchHandler] stats failed: %v", err)
		RenderError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}

	RenderJSON(w, http.StatusOK, stats)
}

func (h *BatchHandler) renderServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		RenderError(w, http.StatusNotFound, "Batch not found")
	case errors.Is(err, service.ErrBatchNotPausable),
		errors.Is(err, service.ErrBatchNotResumable),
		errors.Is(err, service.ErrBatchNotCancellable):
		RenderError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[BatchHandler] request failed: %v", err)
		RenderError(w, http.StatusInternalServerError, "Internal error")
	}
}

func parseBatchID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}
