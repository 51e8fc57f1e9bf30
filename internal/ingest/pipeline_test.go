package ingest

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"os"
	"strings"
	"testing"
	"time"

	"studyassist-backend/internal/documents"
	"studyassist-backend/internal/extract"
	"studyassist-backend/internal/quota"
	"studyassist-backend/internal/studygen"
	"studyassist-backend/internal/users"
)

const sampleText = "Photosynthesis converts light energy into chemical energy inside chloroplasts, producing glucose and oxygen."

func okGenerate(ctx context.Context, sourceText, language string) (studygen.StudyMaterials, error) {
	return studygen.StudyMaterials{
		Summary:    "summary",
		Flashcards: []studygen.Flashcard{{Question: "q", Answer: "a"}},
		ExamQuestions: []studygen.ExamQuestion{{
			Type: studygen.QuestionTrueFalse, Question: "q", Options: []string{"True", "False"}, CorrectAnswer: "True",
		}},
	}, nil
}

func textExtract(text string) ExtractFunc {
	return func(ctx context.Context, path, mimeType string) (string, error) {
		return text, nil
	}
}

func newQuota(t *testing.T, limit, used int, plan string) (*quota.Service, *users.MemoryRepo) {
	t.Helper()
	repo := users.NewMemoryRepo()
	if err := repo.Upsert(context.Background(), users.User{ID: "user-1", Email: "u@example.com", MonthlyLimit: limit}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if plan != "" {
		if err := repo.UpdateAccess(context.Background(), "user-1", users.AccessUpdate{Plan: &plan}); err != nil {
			t.Fatalf("UpdateAccess: %v", err)
		}
	}
	for i := 0; i < used; i++ {
		if err := repo.ConsumeUpload(context.Background(), "user-1", 0); err != nil {
			t.Fatalf("ConsumeUpload: %v", err)
		}
	}
	return quota.NewService(repo), repo
}

func input() Input {
	return Input{
		UserID:           "user-1",
		OriginalFilename: "notes.pdf",
		MimeType:         "application/pdf",
		Language:         "english",
		TempPath:         "/tmp/does-not-matter",
		SizeBytes:        1024,
	}
}

func TestRunRejectsWhenQuotaExhausted(t *testing.T) {
	quotaSvc, userRepo := newQuota(t, 5, 5, "")
	docs := documents.NewMemoryRepo()
	p := NewPipeline(quotaSvc, textExtract(sampleText), okGenerate, docs)

	_, err := p.Run(context.Background(), input())
	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Code != CodeQuotaExceeded {
		t.Fatalf("expected quota rejection, got %v", err)
	}

	stats, _ := docs.Stats(context.Background(), time.Time{})
	if stats.TotalDocuments != 0 {
		t.Fatalf("no document should be persisted, got %d", stats.TotalDocuments)
	}
	user, _ := userRepo.GetByID(context.Background(), "user-1")
	if user.DocumentsUsed != 5 {
		t.Fatalf("quota must stay at 5, got %d", user.DocumentsUsed)
	}
}

func TestRunRejectsUnknownUser(t *testing.T) {
	quotaSvc := quota.NewService(users.NewMemoryRepo())
	p := NewPipeline(quotaSvc, textExtract(sampleText), okGenerate, documents.NewMemoryRepo())

	_, err := p.Run(context.Background(), input())
	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Code != CodeUserNotFound {
		t.Fatalf("expected user not found rejection, got %v", err)
	}
}

func TestRunPremiumFloorAllowsBeyondConfiguredLimit(t *testing.T) {
	quotaSvc, userRepo := newQuota(t, 5, 50, "premium")
	docs := documents.NewMemoryRepo()
	p := NewPipeline(quotaSvc, textExtract(sampleText), okGenerate, docs)

	doc, err := p.Run(context.Background(), input())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if doc.Summary != "summary" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	user, _ := userRepo.GetByID(context.Background(), "user-1")
	if user.DocumentsUsed != 51 || user.StorageUsed != 1024 {
		t.Fatalf("expected accounting 51/1024, got %d/%d", user.DocumentsUsed, user.StorageUsed)
	}
}

func TestRunGenerationFailureBurnsNoQuota(t *testing.T) {
	quotaSvc, userRepo := newQuota(t, 5, 2, "")
	docs := documents.NewMemoryRepo()
	failing := func(ctx context.Context, sourceText, language string) (studygen.StudyMaterials, error) {
		return studygen.StudyMaterials{}, &studygen.GenerationFailure{Stage: "model", Err: errors.New("upstream timeout")}
	}
	p := NewPipeline(quotaSvc, textExtract(sampleText), failing, docs)

	_, err := p.Run(context.Background(), input())
	var genFailure *studygen.GenerationFailure
	if !errors.As(err, &genFailure) {
		t.Fatalf("expected GenerationFailure, got %v", err)
	}

	user, _ := userRepo.GetByID(context.Background(), "user-1")
	if user.DocumentsUsed != 2 || user.StorageUsed != 0 {
		t.Fatalf("quota must be untouched, got %d/%d", user.DocumentsUsed, user.StorageUsed)
	}
	stats, _ := docs.Stats(context.Background(), time.Time{})
	if stats.TotalDocuments != 0 {
		t.Fatalf("no document should be persisted, got %d", stats.TotalDocuments)
	}
}

func TestRunRejectsShortExtractedText(t *testing.T) {
	quotaSvc, _ := newQuota(t, 5, 0, "")
	p := NewPipeline(quotaSvc, textExtract("too short"), okGenerate, documents.NewMemoryRepo())

	_, err := p.Run(context.Background(), input())
	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Code != CodeInsufficientText {
		t.Fatalf("expected insufficient text rejection, got %v", err)
	}
}

func TestRunRejectsUnsupportedType(t *testing.T) {
	quotaSvc, _ := newQuota(t, 5, 0, "")
	unsupported := func(ctx context.Context, path, mimeType string) (string, error) {
		return "", extract.ErrUnsupportedType
	}
	p := NewPipeline(quotaSvc, unsupported, okGenerate, documents.NewMemoryRepo())

	_, err := p.Run(context.Background(), input())
	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Code != CodeUnsupportedType {
		t.Fatalf("expected unsupported type rejection, got %v", err)
	}
}

func TestRunRejectsOversizedFile(t *testing.T) {
	quotaSvc, _ := newQuota(t, 5, 0, "")
	p := NewPipeline(quotaSvc, textExtract(sampleText), okGenerate, documents.NewMemoryRepo())

	in := input()
	in.SizeBytes = MaxUploadBytes + 1
	_, err := p.Run(context.Background(), in)
	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Code != CodeFileTooLarge {
		t.Fatalf("expected file too large rejection, got %v", err)
	}
}

func TestSaveTempAndRemove(t *testing.T) {
	dir := t.TempDir()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", "my report (v2).pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4 test")); err != nil {
		t.Fatalf("write: %v", err)
	}
	writer.Close()

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	defer form.RemoveAll()

	path, err := SaveTemp(dir, form.File["file"][0])
	if err != nil {
		t.Fatalf("SaveTemp: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Fatalf("temp file outside dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	if string(data) != "%PDF-1.4 test" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := RemoveTemp(path); err != nil {
		t.Fatalf("RemoveTemp: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("temp file should be gone, stat err=%v", err)
	}
	// Removing again is fine.
	if err := RemoveTemp(path); err != nil {
		t.Fatalf("RemoveTemp twice: %v", err)
	}
}

func TestSaveTempRejectsTraversalName(t *testing.T) {
	dir := t.TempDir()

	// Built directly: multipart parsing base-names the filename since Go
	// 1.17, but the guard must hold for any caller.
	fh := &multipart.FileHeader{Filename: "..secret.pdf"}

	_, err := SaveTemp(dir, fh)
	var rejection *Rejection
	if !errors.As(err, &rejection) || rejection.Code != CodeInvalidRequest {
		t.Fatalf("expected validation rejection, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("nothing should be written, found %d entries", len(entries))
	}
}
