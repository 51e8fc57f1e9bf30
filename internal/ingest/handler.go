package ingest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/documents"
	"studyassist-backend/internal/extract"
	"studyassist-backend/internal/shared/server/middleware"
	"studyassist-backend/internal/shared/server/respond"
	"studyassist-backend/internal/shared/telemetry"
	"studyassist-backend/internal/studygen"
)

// Handler accepts document uploads and runs them through the pipeline.
type Handler struct {
	Pipeline *Pipeline
	TempDir  string
}

func NewHandler(pipeline *Pipeline, tempDir string) *Handler {
	return &Handler{Pipeline: pipeline, TempDir: tempDir}
}

// RegisterRoutes attaches the upload route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	// A little headroom over the file cap for the multipart envelope.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "file exceeds 25 MiB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, CodeInvalidRequest, "multipart field 'file' is required", nil)
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "file exceeds 25 MiB limit", nil)
		return
	}

	language := studygen.NormalizeLanguage(c.PostForm("language"))
	mimeType := fileHeader.Header.Get("Content-Type")

	// Gate on the declared type before the file touches disk.
	if !extract.Supported(mimeType) {
		respond.Error(c, http.StatusUnsupportedMediaType, CodeUnsupportedType, "only PDF, DOCX and PPTX files are supported", nil)
		return
	}

	tempPath, err := SaveTemp(h.TempDir, fileHeader)
	if err != nil {
		var rejection *Rejection
		if errors.As(err, &rejection) {
			respond.Error(c, rejectionStatus(rejection.Code), rejection.Code, rejection.Message, nil)
			return
		}
		telemetry.Error("ingest.temp_save", map[string]any{"userId": userID, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}
	defer func() {
		if err := RemoveTemp(tempPath); err != nil {
			telemetry.Error("ingest.temp_cleanup", map[string]any{"path": tempPath, "error": err.Error()})
		}
	}()

	doc, err := h.Pipeline.Run(c.Request.Context(), Input{
		UserID:           userID,
		OriginalFilename: fileHeader.Filename,
		MimeType:         mimeType,
		Language:         language,
		TempPath:         tempPath,
		SizeBytes:        fileHeader.Size,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond.Created(c, gin.H{
		"success":  true,
		"document": documents.ToDetail(doc),
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		respond.Error(c, rejectionStatus(rejection.Code), rejection.Code, rejection.Message, nil)
		return
	}

	var genFailure *studygen.GenerationFailure
	if errors.As(err, &genFailure) {
		respond.Error(c, http.StatusBadGateway, "generation_failed", "study material generation failed", nil)
		return
	}

	var extractFailure *ExtractionFailure
	if errors.As(err, &extractFailure) {
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "failed to read document content", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process document", nil)
}

func rejectionStatus(code string) int {
	switch code {
	case CodeQuotaExceeded:
		return http.StatusForbidden
	case CodeUnsupportedType:
		return http.StatusUnsupportedMediaType
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeInsufficientText:
		return http.StatusUnprocessableEntity
	case CodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
