// Package studygen generates study materials from extracted document text.
package studygen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// StudyMaterials is the structured output produced for one document.
type StudyMaterials struct {
	Summary       string         `json:"summary"`
	Flashcards    []Flashcard    `json:"flashcards"`
	ExamQuestions []ExamQuestion `json:"examQuestions"`
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Exam question types. The literals flow through the prompt, the output
// validator and the persisted rows.
const (
	QuestionMultipleChoice = "multiple-choice"
	QuestionTrueFalse      = "true/false"
	QuestionShortAnswer    = "short-answer"
)

// ExamQuestion carries one generated question. Options is populated for the
// choice-based types and empty for short answers.
type ExamQuestion struct {
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Client abstracts LLM providers for study material generation.
type Client interface {
	Complete(ctx context.Context, input GenerateInput) (json.RawMessage, error)
}

// GenerateInput captures the inputs for one generation call.
type GenerateInput struct {
	SourceText string
	Language   string
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

func (PlaceholderClient) Complete(ctx context.Context, input GenerateInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}

// GenerationFailure marks errors from the model call or its output parsing.
// Callers use it to distinguish upstream failures from caller mistakes.
type GenerationFailure struct {
	Stage string
	Err   error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }
