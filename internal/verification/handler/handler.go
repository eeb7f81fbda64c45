package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/idproof/idproof-backend/internal/verification/domain"
	"github.com/idproof/idproof-backend/internal/verification/report"
	"github.com/idproof/idproof-backend/internal/verification/service"
	"github.com/idproof/idproof-backend/internal/verification/storage"
	"github.com/idproof/idproof-backend/pkg/errors"
	"github.com/idproof/idproof-backend/pkg/httputil"
	"github.com/idproof/idproof-backend/pkg/logger"
)

// Handler handles HTTP requests for the verification flow
type Handler struct {
	service   *service.Service
	blobs     *storage.BlobStore
	reports   *report.Generator
	maxUpload int64
	log       *logger.Logger
}

// NewHandler creates a verification handler. maxUploadMB bounds a single
// uploaded image.
func NewHandler(svc *service.Service, blobs *storage.BlobStore, reports *report.Generator, maxUploadMB int, log *logger.Logger) *Handler {
	return &Handler{
		service:   svc,
		blobs:     blobs,
		reports:   reports,
		maxUpload: int64(maxUploadMB) << 20,
		log:       log,
	}
}

// Routes mounts the verification endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Route("/verifications", func(r chi.Router) {
		r.Post("/", h.UploadDocument)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/selfie", h.UploadSelfie)
			r.Post("/process", h.Process)
			r.Get("/report", h.Report)
		})
	})
}

// UploadDocument handles POST /verifications.
// Accepts a multipart form with a "document" image; runs OCR and creates
// the verification record.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	data, err := h.readUpload(w, r, "document")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	path, err := h.blobs.Save("document", data)
	if err != nil {
		httputil.Error(w, uploadError(err))
		return
	}

	rec, extraction, err := h.service.CreateFromDocument(r.Context(), path)
	if err != nil {
		if rmErr := h.blobs.Remove(path); rmErr != nil {
			h.log.Warn().Err(rmErr).Msg("failed to remove orphaned document blob")
		}
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, map[string]interface{}{
		"record":     rec,
		"extraction": extraction,
	})
}

// UploadSelfie handles POST /verifications/{id}/selfie
func (h *Handler) UploadSelfie(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	data, err := h.readUpload(w, r, "selfie")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	path, err := h.blobs.Save("selfie", data)
	if err != nil {
		httputil.Error(w, uploadError(err))
		return
	}

	rec, err := h.service.AttachSelfie(r.Context(), id, path)
	if err != nil {
		if rmErr := h.blobs.Remove(path); rmErr != nil {
			h.log.Warn().Err(rmErr).Msg("failed to remove orphaned selfie blob")
		}
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Process handles POST /verifications/{id}/process
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.Process(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Get handles GET /verifications/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

type listQuery struct {
	Status string `validate:"omitempty,oneof=pending document_processed selfie_uploaded processing completed failed"`
	Limit  int    `validate:"min=0,max=500"`
}

// List handles GET /verifications with optional status and limit filters
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Error(w, errors.BadRequest("limit must be a number"))
			return
		}
		q.Limit = limit
	}
	if err := httputil.Validate(q); err != nil {
		httputil.Error(w, err)
		return
	}

	recs, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if q.Status != "" {
		filtered := recs[:0]
		for _, rec := range recs {
			if rec.Status == domain.Status(q.Status) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}

	httputil.JSON(w, http.StatusOK, recs)
}

// Report handles GET /verifications/{id}/report and streams the PDF
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if rec.Status != domain.StatusCompleted {
		httputil.Error(w, errors.Conflict("report is only available for completed verifications"))
		return
	}

	pdf, err := h.reports.Generate(rec)
	if err != nil {
		h.log.Error().Err(err).Int64("record_id", id).Msg("report generation failed")
		httputil.Error(w, errors.Internal("could not generate report"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=verification-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// readUpload reads one bounded multipart image field
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, errors.BadRequest("file too large or invalid multipart form")
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.BadRequest(fmt.Sprintf("missing %s file in request", field))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Internal("failed to read uploaded file")
	}
	if len(data) == 0 {
		return nil, errors.BadRequest(fmt.Sprintf("%s file is empty", field))
	}
	return data, nil
}

func recordID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid record id")
	}
	return id, nil
}

func uploadError(err error) error {
	if errors.Is(err, storage.ErrUnsupportedImage) {
		return errors.BadRequest("unsupported image format; upload a JPEG, PNG or WebP file")
	}
	return errors.Internal("could not store uploaded image")
}
