package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-learning-service/internal/domain"
)

func request(count int, explanations bool) domain.GenerationRequest {
	cfg := domain.DefaultGenerationConfig()
	cfg.QuestionCount = count
	cfg.IncludeExplanations = explanations
	return domain.GenerationRequest{Method: domain.MethodTopic, Topic: "Algebra", GenerationConfig: cfg}
}

func TestGenerateBuildsQuestions(t *testing.T) {
	m := NewMock(Config{APIKey: "k", Seed: 3})

	for _, count := range []int{5, 12, 30} {
		quiz, err := m.Generate(context.Background(), request(count, true))
		require.NoError(t, err)
		require.NoError(t, quiz.Validate())
		require.Len(t, quiz.Questions, count)
		assert.Equal(t, "Algebra", quiz.Title)
		assert.NotEmpty(t, quiz.ID)

		for i, q := range quiz.Questions {
			n := i + 1
			assert.Equal(t, fmt.Sprintf("q%d", n), q.ID)
			assert.Equal(t, fmt.Sprintf("Sample question %d about Algebra?", n), q.Text)
			require.Len(t, q.Options, 4)
			assert.Equal(t, fmt.Sprintf("Option C for question %d", n), q.Options[2].Text)
			assert.Contains(t, []string{"a", "b", "c", "d"}, q.CorrectAnswer)
			assert.Equal(t, fmt.Sprintf("This is an explanation for question %d about Algebra.", n), q.Explanation)
		}
	}
}

func TestGenerateWithoutExplanations(t *testing.T) {
	quiz, err := NewMock(Config{APIKey: "k"}).Generate(context.Background(), request(5, false))
	require.NoError(t, err)
	for _, q := range quiz.Questions {
		assert.Empty(t, q.Explanation)
	}
}

func TestGenerateIsReproducibleWithSeed(t *testing.T) {
	a, err := NewMock(Config{APIKey: "k", Seed: 99}).Generate(context.Background(), request(20, false))
	require.NoError(t, err)
	b, err := NewMock(Config{APIKey: "k", Seed: 99}).Generate(context.Background(), request(20, false))
	require.NoError(t, err)
	for i := range a.Questions {
		assert.Equal(t, a.Questions[i].CorrectAnswer, b.Questions[i].CorrectAnswer)
	}
}

func TestGenerateFromDocument(t *testing.T) {
	req := request(5, true)
	req.Method = domain.MethodDocument
	req.Topic = ""
	req.Document = &domain.Document{Name: "cells.chapter.pdf"}

	quiz, err := NewMock(Config{APIKey: "k"}).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cells", quiz.Title)
	assert.Equal(t, "Sample question 1 about cells?", quiz.Questions[0].Text)
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	_, err := NewMock(Config{APIKey: "  ", TopicDelay: time.Hour}).Generate(context.Background(), request(5, true))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestGenerateHonoursContext(t *testing.T) {
	m := NewMock(Config{APIKey: "k", TopicDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Generate(ctx, request(5, true))
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerateWaitsForDelay(t *testing.T) {
	m := NewMock(Config{APIKey: "k", TopicDelay: 30 * time.Millisecond})
	start := time.Now()
	_, err := m.Generate(context.Background(), request(5, true))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
