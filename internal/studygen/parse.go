package studygen

import (
	"encoding/json"
	"errors"
	"strings"
)

// Parse decodes raw model output into StudyMaterials. Code fences around the
// JSON are tolerated; anything else malformed fails as a GenerationFailure.
func Parse(raw []byte) (StudyMaterials, error) {
	cleaned := stripCodeFence(string(raw))

	var materials StudyMaterials
	if err := json.Unmarshal([]byte(cleaned), &materials); err != nil {
		return StudyMaterials{}, &GenerationFailure{Stage: "parse", Err: err}
	}
	if err := validate(materials); err != nil {
		return StudyMaterials{}, &GenerationFailure{Stage: "validate", Err: err}
	}
	return materials, nil
}

func validate(m StudyMaterials) error {
	if strings.TrimSpace(m.Summary) == "" {
		return errors.New("missing summary")
	}
	if len(m.Flashcards) == 0 {
		return errors.New("missing flashcards")
	}
	if len(m.ExamQuestions) == 0 {
		return errors.New("missing exam questions")
	}
	for _, q := range m.ExamQuestions {
		switch q.Type {
		case QuestionMultipleChoice, QuestionTrueFalse:
			if !hasOption(q.Options, q.CorrectAnswer) {
				return errors.New("correct answer is not one of the options")
			}
		case QuestionShortAnswer:
		default:
			return errors.New("unknown exam question type: " + q.Type)
		}
	}
	return nil
}

func hasOption(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		first := strings.TrimSpace(trimmed[:idx])
		if first == "" || isFenceTag(first) {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
