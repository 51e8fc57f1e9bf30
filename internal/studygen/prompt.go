package studygen

import (
	"fmt"
	"strings"
)

// Supported output languages.
const (
	LanguageEnglish = "english"
	LanguageArabic  = "arabic"
)

// maxSourceChars caps how many characters of extracted text go into the
// prompt. Longer documents keep only their leading characters.
const maxSourceChars = 8000

// Message is one chat message in a generation prompt.
type Message struct {
	Role    string
	Content string
}

// sizing controls how many items the prompt asks for at each document size.
type sizing struct {
	FlashcardsMin int
	FlashcardsMax int
	Questions     int
}

func sizingFor(wordCount int) sizing {
	switch {
	case wordCount < 500:
		return sizing{FlashcardsMin: 5, FlashcardsMax: 8, Questions: 5}
	case wordCount <= 2000:
		return sizing{FlashcardsMin: 10, FlashcardsMax: 15, Questions: 8}
	default:
		return sizing{FlashcardsMin: 15, FlashcardsMax: 20, Questions: 10}
	}
}

// NormalizeLanguage maps user input to a supported language, defaulting to
// english for anything unrecognized.
func NormalizeLanguage(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case LanguageArabic, "ar":
		return LanguageArabic
	default:
		return LanguageEnglish
	}
}

// BuildPrompt assembles the chat messages for one generation call. The
// source text is truncated to maxSourceChars before sizing is computed.
func BuildPrompt(sourceText, language string) []Message {
	text := sourceText
	if runes := []rune(text); len(runes) > maxSourceChars {
		text = string(runes[:maxSourceChars])
	}
	size := sizingFor(len(strings.Fields(text)))
	language = NormalizeLanguage(language)

	languageLine := "Write all output in English."
	trueFalseOptions := `["True", "False"]`
	if language == LanguageArabic {
		languageLine = "Write all output in Arabic."
		trueFalseOptions = `["صح", "خطأ"]`
	}

	system := "You are an expert study assistant. You produce accurate, well-structured study materials from course documents. Respond with a single JSON object and nothing else."

	user := fmt.Sprintf(`Create study materials from the document below.

%s

Return a JSON object with exactly these fields:
- "summary": a thorough summary of the document's key points.
- "flashcards": an array of %d to %d objects, each with "question" and "answer".
- "examQuestions": an array of %d objects, each with:
  - "type": %q, %q or %q
  - "question": the question text
  - "options": 4 options for multiple-choice, %s for true/false, [] for short-answer
  - "correctAnswer": one of the options verbatim, or the expected answer for short-answer
  - "explanation": why that answer is correct

Base every item strictly on the document content.

Document:
---
%s
---`, languageLine, size.FlashcardsMin, size.FlashcardsMax, size.Questions,
		QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, trueFalseOptions, text)

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}
