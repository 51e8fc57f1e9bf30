package ingest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/bootstrap"
	"studyassist-backend/internal/ingest"
	sharedauth "studyassist-backend/internal/shared/auth"
	"studyassist-backend/internal/shared/config"
	"studyassist-backend/internal/studygen"
	"studyassist-backend/internal/users"
)

const docText = "Photosynthesis converts light energy into chemical energy inside chloroplasts, producing glucose and oxygen for the plant."

func buildApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		TempDir:         t.TempDir(),
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}

	// Skip the real decoders and model call; the pipeline wiring is under test.
	app.Pipeline.Extract = func(ctx context.Context, path, mimeType string) (string, error) {
		return docText, nil
	}
	app.Pipeline.Generate = func(ctx context.Context, sourceText, language string) (studygen.StudyMaterials, error) {
		return studygen.StudyMaterials{
			Summary:    "A summary of photosynthesis.",
			Flashcards: []studygen.Flashcard{{Question: "q", Answer: "a"}},
			ExamQuestions: []studygen.ExamQuestion{{
				Type: studygen.QuestionTrueFalse, Question: "q", Options: []string{"True", "False"}, CorrectAnswer: "True",
			}},
		}, nil
	}
	return app
}

func seedUser(t *testing.T, app *bootstrap.App, id string) {
	t.Helper()
	if err := app.UsersRepo.Upsert(context.Background(), users.User{ID: id, Email: id + "@example.com"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func signToken(t *testing.T, sub, role, plan string) string {
	t.Helper()
	claims := sharedauth.Claims{Role: role, Plan: plan}
	claims.Subject = sub
	token, err := sharedauth.SignJWT(claims)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return token
}

func uploadRequest(t *testing.T, token string) *http.Request {
	return typedUploadRequest(t, token, "lecture.pdf", "application/pdf")
}

func typedUploadRequest(t *testing.T, token, fileName, contentType string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	fw, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("%PDF-1.4 fake content")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("language", "english"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func assertNoTempFiles(t *testing.T, app *bootstrap.App) {
	t.Helper()
	entries, err := os.ReadDir(app.Config.TempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp files left behind: %d", len(entries))
	}
}

func TestUploadHappyPathConsumesQuota(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:alice")
	token := signToken(t, "google:alice", "user", "free")

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, token))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		Success  bool `json:"success"`
		Document struct {
			ID            string `json:"id"`
			Filename      string `json:"filename"`
			Summary       string `json:"summary"`
			Flashcards    []any  `json:"flashcards"`
			ExamQuestions []any  `json:"examQuestions"`
		} `json:"document"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !created.Success || created.Document.ID == "" || created.Document.Filename != "lecture.pdf" {
		t.Fatalf("unexpected response: %+v", created)
	}
	if created.Document.Summary == "" || len(created.Document.Flashcards) == 0 || len(created.Document.ExamQuestions) == 0 {
		t.Fatalf("missing study materials: %+v", created.Document)
	}

	reqQuota := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
	reqQuota.Header.Set("Authorization", "Bearer "+token)
	respQuota := httptest.NewRecorder()
	app.Router.ServeHTTP(respQuota, reqQuota)
	if respQuota.Code != http.StatusOK {
		t.Fatalf("quota status %d", respQuota.Code)
	}
	var quotaBody struct {
		Used      int `json:"used"`
		Remaining int `json:"remaining"`
	}
	if err := json.NewDecoder(respQuota.Body).Decode(&quotaBody); err != nil {
		t.Fatalf("decode quota: %v", err)
	}
	if quotaBody.Used != 1 || quotaBody.Remaining != 4 {
		t.Fatalf("expected used 1 remaining 4, got %+v", quotaBody)
	}
	assertNoTempFiles(t, app)
}

func TestUploadRejectedWhenQuotaExhausted(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:bob")
	for i := 0; i < 5; i++ {
		if err := app.UsersRepo.ConsumeUpload(context.Background(), "google:bob", 10); err != nil {
			t.Fatalf("ConsumeUpload: %v", err)
		}
	}
	token := signToken(t, "google:bob", "user", "free")

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, token))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body.String())
	}

	var errBody struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errBody.Error.Code != ingest.CodeQuotaExceeded {
		t.Fatalf("expected quota_exceeded, got %s", errBody.Error.Code)
	}
	assertNoTempFiles(t, app)
}

func TestUploadRejectsUnsupportedTypeBeforeSaving(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:dave")
	token := signToken(t, "google:dave", "user", "free")

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, typedUploadRequest(t, token, "notes.txt", "text/plain"))
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d: %s", resp.Code, resp.Body.String())
	}

	// The file must never reach disk on a declared-type rejection.
	assertNoTempFiles(t, app)
	user, err := app.UsersRepo.GetByID(context.Background(), "google:dave")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.DocumentsUsed != 0 {
		t.Fatalf("quota must be untouched, got %d", user.DocumentsUsed)
	}
}

func TestUploadRejectsTraversalFileName(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:eve")
	token := signToken(t, "google:eve", "user", "free")

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, typedUploadRequest(t, token, "..secret.pdf", "application/pdf"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	assertNoTempFiles(t, app)
}

func TestUploadExtractionFailureCleansTemp(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:frank")
	app.Pipeline.Extract = func(ctx context.Context, path, mimeType string) (string, error) {
		return "", errors.New("decode pdf: malformed xref table")
	}
	token := signToken(t, "google:frank", "user", "free")

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, token))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.Code, resp.Body.String())
	}
	var errBody struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errBody.Error.Code != "extraction_failed" {
		t.Fatalf("expected extraction_failed, got %s", errBody.Error.Code)
	}
	assertNoTempFiles(t, app)
}

func TestUploadRequiresAuth(t *testing.T) {
	app := buildApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestUploadGenerationFailureLeavesQuotaUntouched(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:carol")
	app.Pipeline.Generate = func(ctx context.Context, sourceText, language string) (studygen.StudyMaterials, error) {
		return studygen.StudyMaterials{}, &studygen.GenerationFailure{Stage: "model", Err: context.DeadlineExceeded}
	}
	token := signToken(t, "google:carol", "user", "free")

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, token))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", resp.Code, resp.Body.String())
	}

	user, err := app.UsersRepo.GetByID(context.Background(), "google:carol")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.DocumentsUsed != 0 || user.StorageUsed != 0 {
		t.Fatalf("quota must be untouched, got %d/%d", user.DocumentsUsed, user.StorageUsed)
	}
	assertNoTempFiles(t, app)
}
