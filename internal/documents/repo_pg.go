package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studyassist-backend/internal/studygen"
)

// PGRepo implements Repo using Postgres. Flashcards and exam questions are
// stored as JSONB columns.
type PGRepo struct {
	DB *sql.DB
}

const docColumns = `id, user_id, file_name, original_filename, mime_type, size_bytes, language, summary, flashcards, exam_questions, created_at`

// Create inserts a new document with its study materials.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    original_filename,
    mime_type,
    size_bytes,
    language,
    summary,
    flashcards,
    exam_questions,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	originalName := doc.OriginalFilename
	if originalName == "" {
		originalName = doc.FileName
	}
	flashcards, err := json.Marshal(doc.Flashcards)
	if err != nil {
		return fmt.Errorf("encode flashcards: %w", err)
	}
	questions, err := json.Marshal(doc.ExamQuestions)
	if err != nil {
		return fmt.Errorf("encode exam questions: %w", err)
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		originalName,
		doc.MimeType,
		doc.SizeBytes,
		doc.Language,
		doc.Summary,
		flashcards,
		questions,
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return scanDoc(r.DB.QueryRowContext(ctx, query, userID, documentID))
}

// GetAnyByID fetches a document regardless of owner.
func (r *PGRepo) GetAnyByID(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	return scanDoc(r.DB.QueryRowContext(ctx, query, documentID))
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes a document owned by the user.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID string) error {
	const query = `DELETE FROM documents WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAny removes a document regardless of owner.
func (r *PGRepo) DeleteAny(ctx context.Context, documentID string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates document counts and bytes for the analytics endpoint.
func (r *PGRepo) Stats(ctx context.Context, recentSince time.Time) (Stats, error) {
	const query = `
SELECT
    COUNT(*),
    COALESCE(SUM(size_bytes), 0),
    COUNT(*) FILTER (WHERE created_at >= $1)
FROM documents`
	var stats Stats
	err := r.DB.QueryRowContext(ctx, query, recentSince).Scan(
		&stats.TotalDocuments,
		&stats.TotalBytes,
		&stats.RecentUploads,
	)
	return stats, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoc(row rowScanner) (Document, error) {
	var doc Document
	var originalName sql.NullString
	var language sql.NullString
	var summary sql.NullString
	var flashcards []byte
	var questions []byte
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&originalName,
		&doc.MimeType,
		&doc.SizeBytes,
		&language,
		&summary,
		&flashcards,
		&questions,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if originalName.Valid {
		doc.OriginalFilename = originalName.String
	}
	if language.Valid {
		doc.Language = language.String
	}
	if summary.Valid {
		doc.Summary = summary.String
	}
	if len(flashcards) > 0 {
		if err := json.Unmarshal(flashcards, &doc.Flashcards); err != nil {
			return Document{}, fmt.Errorf("decode flashcards: %w", err)
		}
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &doc.ExamQuestions); err != nil {
			return Document{}, fmt.Errorf("decode exam questions: %w", err)
		}
	}
	if doc.Flashcards == nil {
		doc.Flashcards = []studygen.Flashcard{}
	}
	if doc.ExamQuestions == nil {
		doc.ExamQuestions = []studygen.ExamQuestion{}
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
