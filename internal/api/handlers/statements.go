package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/jobs"
)

const pdfContentType = "application/pdf"

// StatementsHandler accepts statement uploads.
type StatementsHandler struct {
	storage   gcs.StorageService
	users     UserService
	publisher jobs.Publisher
	bucket    string
	maxUpload int64
	now       func() time.Time
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler. When publisher is nil
// the upload is left to the storage notification to pick up.
func NewStatementsHandler(storage gcs.StorageService, users UserService, publisher jobs.Publisher, bucket string, maxUpload int64, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		storage:   storage,
		users:     users,
		publisher: publisher,
		bucket:    bucket,
		maxUpload: maxUpload,
		now:       time.Now,
		log:       log,
	}
}

// Upload handles POST /api/statements?user_id=
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	exists, err := h.users.Exists(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to look up user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}
	if !exists {
		middleware.WriteError(w, http.StatusForbidden, "User is not registered")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	if !gcs.IsPDF(header.Filename) {
		middleware.WriteError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	key := gcs.StatementKey(userID, header.Filename, h.now())
	metadata := map[string]string{gcs.OwnerMetadataKey: userID}
	if err := h.storage.Upload(ctx, h.bucket, key, data, pdfContentType, metadata); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to store statement")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().
		Str("owner_id", userID).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Statement uploaded")

	resp := map[string]string{
		"message": "Uploaded",
		"key":     key,
		"user_id": userID,
	}

	if h.publisher != nil {
		job, err := h.publisher.PublishProcessStatement(ctx, jobs.ProcessStatementJob{Bucket: h.bucket, Key: key})
		if err != nil {
			h.log.Error().Err(err).Str("key", key).Msg("Failed to enqueue processing job")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing job")
			return
		}
		resp["job_id"] = job.JobID
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}
