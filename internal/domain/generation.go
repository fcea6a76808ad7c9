package domain

import (
	"path/filepath"
	"strings"
)

// GenerationMethod selects the variant of a GenerationRequest.
type GenerationMethod string

const (
	MethodTopic    GenerationMethod = "topic"
	MethodDocument GenerationMethod = "document"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type QuizFormat string

const (
	FormatMultipleChoice QuizFormat = "multiple-choice"
	FormatTrueFalse      QuizFormat = "true-false"
	FormatShortAnswer    QuizFormat = "short-answer"
	FormatMixed          QuizFormat = "mixed"
)

const (
	MinQuestionCount = 5
	MaxQuestionCount = 30
)

// GenerationConfig is shared by both request variants.
type GenerationConfig struct {
	Difficulty          Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	QuestionCount       int        `json:"questionCount" validate:"min=5,max=30"`
	Format              QuizFormat `json:"quizFormat" validate:"required,oneof=multiple-choice true-false short-answer mixed"`
	IncludeExplanations bool       `json:"includeExplanations"`
}

// DefaultGenerationConfig mirrors the defaults of the quiz generator form.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Difficulty:          DifficultyMedium,
		QuestionCount:       10,
		Format:              FormatMultipleChoice,
		IncludeExplanations: true,
	}
}

// Document is an uploaded study file.
type Document struct {
	Name    string `json:"name"`
	Content []byte `json:"-"`
}

// GenerationRequest asks for a quiz either from a topic or from a document.
// Exactly one of Topic and Document must be set, matching Method.
type GenerationRequest struct {
	Method   GenerationMethod `json:"method" validate:"required,oneof=topic document"`
	Topic    string           `json:"topic,omitempty"`
	Document *Document        `json:"document,omitempty"`
	GenerationConfig
}

// EffectiveTopic is the subject used for question text. Documents contribute
// their file name without the extension.
func (r GenerationRequest) EffectiveTopic() string {
	if r.Method == MethodDocument && r.Document != nil {
		return DocumentTopic(r.Document.Name)
	}
	return strings.TrimSpace(r.Topic)
}

// DocumentTopic strips directories and everything from the first dot.
func DocumentTopic(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if idx := strings.Index(base, "."); idx > 0 {
		return base[:idx]
	}
	return base
}
