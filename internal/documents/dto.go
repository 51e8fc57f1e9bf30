package documents

import (
	"time"

	"studyassist-backend/internal/studygen"
)

// SummaryResponse is the outward-facing representation of a document without
// its study materials.
type SummaryResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	Language   string    `json:"language"`
	UploadDate time.Time `json:"uploadDate"`
}

// DetailResponse includes the generated study materials.
type DetailResponse struct {
	SummaryResponse
	Summary       string                  `json:"summary"`
	Flashcards    []studygen.Flashcard    `json:"flashcards"`
	ExamQuestions []studygen.ExamQuestion `json:"examQuestions"`
}

func toSummary(doc Document) SummaryResponse {
	return SummaryResponse{
		ID:         doc.ID,
		Filename:   doc.OriginalFilename,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		Language:   doc.Language,
		UploadDate: doc.CreatedAt,
	}
}

// ToDetail builds the full response for a document.
func ToDetail(doc Document) DetailResponse {
	flashcards := doc.Flashcards
	if flashcards == nil {
		flashcards = []studygen.Flashcard{}
	}
	questions := doc.ExamQuestions
	if questions == nil {
		questions = []studygen.ExamQuestion{}
	}
	return DetailResponse{
		SummaryResponse: toSummary(doc),
		Summary:         doc.Summary,
		Flashcards:      flashcards,
		ExamQuestions:   questions,
	}
}
