package documents

import (
	"time"

	"studyassist-backend/internal/studygen"
)

// Document is a processed upload together with its generated study materials.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	Language         string
	Summary          string
	Flashcards       []studygen.Flashcard
	ExamQuestions    []studygen.ExamQuestion
	CreatedAt        time.Time
}
