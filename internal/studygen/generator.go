package studygen

import (
	"context"
)

// Generator turns extracted document text into study materials via an LLM.
type Generator struct {
	Client Client
}

func NewGenerator(client Client) *Generator {
	return &Generator{Client: client}
}

// Generate runs one model call and parses its output. There is no retry;
// a failed call surfaces as a GenerationFailure for the caller to report.
func (g *Generator) Generate(ctx context.Context, sourceText, language string) (StudyMaterials, error) {
	input := GenerateInput{
		SourceText: sourceText,
		Language:   NormalizeLanguage(language),
	}
	raw, err := g.Client.Complete(ctx, input)
	if err != nil {
		return StudyMaterials{}, &GenerationFailure{Stage: "model", Err: err}
	}
	return Parse(raw)
}
