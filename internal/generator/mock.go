package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-learning-service/internal/domain"
)

var optionIDs = []string{"a", "b", "c", "d"}

// Config is injected at construction; nothing is read from the environment here.
type Config struct {
	APIKey        string
	TopicDelay    time.Duration
	DocumentDelay time.Duration
	// Seed fixes the answer key for reproducible output. Zero picks a random seed.
	Seed uint64
}

// Mock stands in for a real generation backend. It synthesizes
// multiple-choice questions after a simulated delay.
type Mock struct {
	cfg   Config
	now   func() time.Time
	newID func() string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMock(cfg Config) *Mock {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Mock{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
		rnd:   rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Generate builds a quiz for the request. It honours ctx while the simulated
// backend call is pending; a cancelled caller gets ctx.Err() back.
func (m *Mock) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Quiz, error) {
	if strings.TrimSpace(m.cfg.APIKey) == "" {
		return domain.Quiz{}, &domain.ConfigurationError{Reason: "generation API key is required"}
	}

	delay := m.cfg.TopicDelay
	if req.Method == domain.MethodDocument {
		delay = m.cfg.DocumentDelay
	}
	if err := wait(ctx, delay); err != nil {
		return domain.Quiz{}, err
	}

	topic := req.EffectiveTopic()
	if topic == "" {
		return domain.Quiz{}, &domain.GenerationError{Err: fmt.Errorf("no topic could be derived from %s request", req.Method)}
	}

	questions := make([]domain.Question, 0, req.QuestionCount)
	m.mu.Lock()
	for i := 1; i <= req.QuestionCount; i++ {
		questions = append(questions, mockQuestion(i, topic, optionIDs[m.rnd.IntN(len(optionIDs))], req.IncludeExplanations))
	}
	m.mu.Unlock()

	return domain.Quiz{
		ID:          m.newID(),
		Title:       topic,
		Description: fmt.Sprintf("%d %s questions about %s", req.QuestionCount, req.Difficulty, topic),
		Difficulty:  req.Difficulty,
		Format:      req.Format,
		Questions:   questions,
		CreatedAt:   m.now(),
	}, nil
}

func mockQuestion(n int, topic, correct string, withExplanation bool) domain.Question {
	options := make([]domain.Option, len(optionIDs))
	for i, id := range optionIDs {
		options[i] = domain.Option{
			ID:   id,
			Text: fmt.Sprintf("Option %s for question %d", strings.ToUpper(id), n),
		}
	}
	q := domain.Question{
		ID:            fmt.Sprintf("q%d", n),
		Text:          fmt.Sprintf("Sample question %d about %s?", n, topic),
		Options:       options,
		CorrectAnswer: correct,
	}
	if withExplanation {
		q.Explanation = fmt.Sprintf("This is an explanation for question %d about %s.", n, topic)
	}
	return q
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
