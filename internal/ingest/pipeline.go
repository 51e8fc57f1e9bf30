package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"studyassist-backend/internal/documents"
	"studyassist-backend/internal/extract"
	"studyassist-backend/internal/quota"
	"studyassist-backend/internal/shared/metrics"
	"studyassist-backend/internal/shared/telemetry"
	"studyassist-backend/internal/studygen"
	"studyassist-backend/internal/users"
)

// minExtractedChars is the minimum usable text length after extraction.
// Scanned or image-only documents fall below it and are rejected.
const minExtractedChars = 50

// MaxUploadBytes caps the accepted file size.
const MaxUploadBytes = 25 << 20

// QuotaKeeper is the quota surface the pipeline needs.
type QuotaKeeper interface {
	CheckUpload(ctx context.Context, userID string) (users.User, error)
	ConsumeUpload(ctx context.Context, userID string, sizeBytes int64) error
}

// ExtractFunc turns a file on disk into plain text.
type ExtractFunc func(ctx context.Context, path, mimeType string) (string, error)

// GenerateFunc produces study materials from extracted text.
type GenerateFunc func(ctx context.Context, sourceText, language string) (studygen.StudyMaterials, error)

// DocumentStore persists the finished document.
type DocumentStore interface {
	Create(ctx context.Context, doc documents.Document) error
}

// Input describes one upload already saved to a temp file.
type Input struct {
	UserID           string
	OriginalFilename string
	MimeType         string
	Language         string
	TempPath         string
	SizeBytes        int64
}

// Pipeline runs an upload through quota check, extraction, generation,
// persistence and accounting. The caller owns the temp file.
type Pipeline struct {
	Quota    QuotaKeeper
	Extract  ExtractFunc
	Generate GenerateFunc
	Docs     DocumentStore
	Now      func() time.Time
}

func NewPipeline(quotaSvc QuotaKeeper, extractFn ExtractFunc, generateFn GenerateFunc, docs DocumentStore) *Pipeline {
	return &Pipeline{
		Quota:    quotaSvc,
		Extract:  extractFn,
		Generate: generateFn,
		Docs:     docs,
		Now:      time.Now,
	}
}

// Run processes one upload. Rejections come back as *Rejection; anything
// else is a processing failure. Quota is consumed only after the document
// row is persisted, so a failed run never burns quota.
func (p *Pipeline) Run(ctx context.Context, in Input) (documents.Document, error) {
	metrics.IncIngestStarted()

	doc, err := p.run(ctx, in)
	if err != nil {
		var rejection *Rejection
		if errors.As(err, &rejection) {
			metrics.IncIngestRejected(rejection.Code)
		}
		return documents.Document{}, err
	}
	metrics.IncIngestCompleted()
	return doc, nil
}

func (p *Pipeline) run(ctx context.Context, in Input) (documents.Document, error) {
	if in.SizeBytes > MaxUploadBytes {
		return documents.Document{}, &Rejection{Code: CodeFileTooLarge, Message: "file exceeds 25 MiB limit"}
	}

	if _, err := p.Quota.CheckUpload(ctx, in.UserID); err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			return documents.Document{}, &Rejection{Code: CodeQuotaExceeded, Message: "monthly document quota exceeded"}
		}
		if errors.Is(err, users.ErrNotFound) {
			return documents.Document{}, &Rejection{Code: CodeUserNotFound, Message: "user not found"}
		}
		metrics.IncIngestFailed("quota")
		return documents.Document{}, fmt.Errorf("quota check: %w", err)
	}

	text, err := p.timedExtract(ctx, in)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return documents.Document{}, &Rejection{Code: CodeUnsupportedType, Message: "only PDF, DOCX and PPTX files are supported"}
		}
		metrics.IncIngestFailed("extract")
		return documents.Document{}, &ExtractionFailure{Err: err}
	}
	if len(strings.TrimSpace(text)) < minExtractedChars {
		return documents.Document{}, &Rejection{Code: CodeInsufficientText, Message: "document contains too little extractable text"}
	}

	materials, err := p.timedGenerate(ctx, text, in.Language)
	if err != nil {
		metrics.IncIngestFailed("generate")
		return documents.Document{}, err
	}

	doc := documents.Document{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		FileName:         uuid.NewString(),
		OriginalFilename: in.OriginalFilename,
		MimeType:         in.MimeType,
		SizeBytes:        in.SizeBytes,
		Language:         studygen.NormalizeLanguage(in.Language),
		Summary:          materials.Summary,
		Flashcards:       materials.Flashcards,
		ExamQuestions:    materials.ExamQuestions,
		CreatedAt:        p.now(),
	}
	if err := p.Docs.Create(ctx, doc); err != nil {
		metrics.IncIngestFailed("persist")
		return documents.Document{}, fmt.Errorf("persist document: %w", err)
	}

	// The document is already saved; a failed counter update must not undo
	// the user's result. Drift gets reconciled by the storage repair job.
	if err := p.Quota.ConsumeUpload(ctx, in.UserID, in.SizeBytes); err != nil {
		metrics.IncIngestFailed("account")
		telemetry.Error("ingest.account", map[string]any{
			"userId":     in.UserID,
			"documentId": doc.ID,
			"error":      err.Error(),
		})
	}
	return doc, nil
}

func (p *Pipeline) timedExtract(ctx context.Context, in Input) (string, error) {
	start := p.now()
	text, err := p.Extract(ctx, in.TempPath, in.MimeType)
	metrics.ObserveStageDuration("extract", p.now().Sub(start))
	return text, err
}

func (p *Pipeline) timedGenerate(ctx context.Context, text, language string) (studygen.StudyMaterials, error) {
	start := p.now()
	materials, err := p.Generate(ctx, text, language)
	metrics.ObserveStageDuration("generate", p.now().Sub(start))
	return materials, err
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
