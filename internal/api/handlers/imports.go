package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/api/middleware"
	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/ingest"
	"github.com/dvloznov/budgetwise/internal/jobs"
)

// maxCSVBytes caps an uploaded CSV file.
const maxCSVBytes = 10 << 20

// Archiver stores a copy of the raw upload. Nil disables archiving.
type Archiver interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
}

// ImportsHandler handles the CSV import endpoints: column-mapping preview,
// import submission, and job history.
type ImportsHandler struct {
	classifier classify.Classifier
	publisher  jobs.Publisher
	store      jobs.JobStore
	archiver   Archiver
	log        zerolog.Logger
}

// NewImportsHandler creates a new imports handler. archiver may be nil.
func NewImportsHandler(classifier classify.Classifier, publisher jobs.Publisher, store jobs.JobStore, archiver Archiver, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		classifier: classifier,
		publisher:  publisher,
		store:      store,
		archiver:   archiver,
		log:        log,
	}
}

// MapColumns handles POST /api/imports/map-columns. The client sends the raw
// CSV and gets back the proposed header mapping for the user to confirm.
func (h *ImportsHandler) MapColumns(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxCSVBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	headers, rows, err := ingest.ParseCSV(bytes.NewReader(data))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid CSV file")
		return
	}

	mappings, err := ingest.ResolveMappings(r.Context(), h.classifier, headers, rows)
	if err != nil {
		// Degrade to an unmapped header list so the user can assign the
		// fields by hand.
		h.log.Error().Err(err).Msg("Failed to resolve column mappings")
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"mappings": ingest.ReconcileMappings(headers, nil),
			"valid":    false,
			"error":    "Column mapping failed",
		})
		return
	}

	valid := ingest.ValidateMappings(mappings) == nil

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"mappings": mappings,
		"valid":    valid,
	})
}

// Create handles POST /api/imports. The CSV arrives as a multipart file
// along with the target account; the import itself runs asynchronously.
func (h *ImportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxCSVBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	accountID := r.FormValue("account_id")
	if accountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxCSVBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "file is empty")
		return
	}

	job := &jobs.ImportCSVJob{
		AccountID:  accountID,
		SourceFile: header.Filename,
		CSVData:    data,
	}

	// Confirmed mapping from the map-columns preview, if the client sent
	// one. The worker re-validates it against the file either way.
	if raw := r.FormValue("mappings"); raw != "" {
		var mappings []classify.ColumnMapping
		if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid mappings")
			return
		}
		job.Mappings = mappings
	}

	if h.archiver != nil {
		uri, err := h.archiver.Store(r.Context(), header.Filename, data)
		if err != nil {
			// The import can still run from memory.
			h.log.Warn().Err(err).Str("file", header.Filename).Msg("failed to archive CSV")
		} else {
			job.GCSURI = uri
		}
	}

	if err := h.publisher.PublishImportCSV(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// ListJobs handles GET /api/imports/jobs?account_id=&status=&limit=&offset=
func (h *ImportsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		AccountID: r.URL.Query().Get("account_id"),
		Status:    jobs.JobStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list import jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list import jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// GetJob handles GET /api/imports/jobs/{id}
func (h *ImportsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Import job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}
