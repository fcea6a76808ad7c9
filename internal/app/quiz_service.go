package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quiz-learning-service/internal/domain"
	"quiz-learning-service/internal/metrics"
	"quiz-learning-service/internal/validation"
)

// SessionRepository abstracts how live quiz sessions are held (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository stores generated quizzes and loads them back (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// QuizGenerator turns a generation request into a quiz. The mock generator
// and a real backend both satisfy it.
type QuizGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.Quiz, error)
}

// TopicSuggester completes partially typed topics.
type TopicSuggester interface {
	Suggest(query string) []string
}

// DefaultRetention is how long a completed session stays readable.
const DefaultRetention = 10 * time.Minute

// SessionSettings controls the countdown of every new session and how long
// it is kept once completed.
type SessionSettings struct {
	Budget       int // seconds
	TickInterval time.Duration
	Retention    time.Duration
}

// QuizService contains the quiz generation and quiz-taking use cases.
type QuizService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	generator QuizGenerator
	topics    TopicSuggester
	metrics   *metrics.Metrics
	log       zerolog.Logger
	settings  SessionSettings
	newID     func() string
}

// Option customizes a QuizService.
type Option func(*QuizService)

func WithLogger(log zerolog.Logger) Option {
	return func(s *QuizService) { s.log = log.With().Str("component", "quiz_service").Logger() }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *QuizService) { s.metrics = m }
}

func WithSessionSettings(settings SessionSettings) Option {
	return func(s *QuizService) { s.settings = settings }
}

func WithTopics(topics TopicSuggester) Option {
	return func(s *QuizService) { s.topics = topics }
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, generator QuizGenerator, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  store,
		quizzes:   quizzes,
		generator: generator,
		log:       zerolog.Nop(),
		settings:  SessionSettings{Budget: DefaultBudget, TickInterval: time.Second, Retention: DefaultRetention},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.settings.Retention <= 0 {
		s.settings.Retention = DefaultRetention
	}
	return s
}

// Generate validates the request, asks the generator for a quiz and stores it.
// Failures are returned to the caller untouched; nothing is retried.
func (s *QuizService) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Quiz, error) {
	if err := validation.GenerationRequest(req); err != nil {
		s.metrics.GenerationFailed("validation")
		return domain.Quiz{}, err
	}

	started := time.Now()
	quiz, err := s.generator.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// The caller is gone; the late result is dropped without noise.
			s.log.Debug().Str("method", string(req.Method)).Msg("generation cancelled by caller")
			return domain.Quiz{}, err
		}
		err = classifyGenerationError(err)
		s.metrics.GenerationFailed(failureKind(err))
		s.log.Warn().Err(err).Str("method", string(req.Method)).Msg("quiz generation failed")
		return domain.Quiz{}, err
	}
	if err := quiz.Validate(); err != nil {
		s.metrics.GenerationFailed("generation")
		return domain.Quiz{}, &domain.GenerationError{Err: err}
	}

	if err := s.quizzes.SaveQuiz(ctx, quiz); err != nil {
		s.metrics.GenerationFailed("storage")
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}

	s.metrics.QuizGenerated(string(req.Method), time.Since(started))
	s.log.Info().
		Str("quiz_id", quiz.ID).
		Str("method", string(req.Method)).
		Str("difficulty", string(req.Difficulty)).
		Int("questions", len(quiz.Questions)).
		Msg("quiz generated")
	return quiz, nil
}

// SuggestTopics returns topic completions for the generator form.
func (s *QuizService) SuggestTopics(query string) []string {
	if s.topics == nil {
		return []string{}
	}
	return s.topics.Suggest(query)
}

// GetQuiz loads a previously generated quiz.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// StartSession opens a new attempt at quizID and starts its countdown.
func (s *QuizService) StartSession(ctx context.Context, quizID string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return s.start(quiz), nil
}

func (s *QuizService) start(quiz domain.Quiz) *Session {
	session := NewSession(s.newID(), quiz, s.settings.Budget)
	session.OnComplete(func(result domain.Result, trigger CompletionTrigger) {
		s.metrics.SessionCompleted(string(trigger), result.Percentage)
		s.log.Info().
			Str("session_id", result.SessionID).
			Str("quiz_id", result.QuizID).
			Str("trigger", string(trigger)).
			Int("correct", result.CorrectCount).
			Int("total", result.TotalCount).
			Int("percentage", result.Percentage).
			Int("elapsed_seconds", result.ElapsedSeconds).
			Msg("quiz session completed")
		// The result stays readable for a while, then the session is dropped.
		time.AfterFunc(s.settings.Retention, func() { s.discard(session) })
	})
	s.sessions.Put(session)
	session.StartTimer(s.settings.TickInterval)

	s.metrics.SessionStarted()
	s.log.Info().Str("session_id", session.ID()).Str("quiz_id", quiz.ID).Msg("quiz session started")
	return session
}

// Session returns a live session.
func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Subscribe returns a channel that receives a snapshot after every change of
// the session, timer ticks included. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Result returns the result of a completed session.
func (s *QuizService) Result(sessionID string) (domain.Result, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	result, completed := session.Result()
	if !completed {
		return domain.Result{}, domain.ErrSessionInProgress
	}
	return result, nil
}

// Retake throws the old attempt away and starts a fresh one on the same quiz.
func (s *QuizService) Retake(_ context.Context, sessionID string) (*Session, error) {
	old, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	s.discard(old)
	return s.start(old.Quiz()), nil
}

// Exit leaves a session. Leaving an unfinished session that holds answers
// needs confirmed=true, otherwise ErrConfirmationRequired is returned and
// the session is kept.
func (s *QuizService) Exit(_ context.Context, sessionID string, confirmed bool) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if session.RequiresExitConfirmation() && !confirmed {
		return domain.ErrConfirmationRequired
	}
	s.discard(session)
	return nil
}

// Discard drops a session without confirmation, e.g. when its client disconnects.
func (s *QuizService) Discard(sessionID string) {
	if session, ok := s.sessions.Get(sessionID); ok {
		s.discard(session)
	}
}

func (s *QuizService) discard(session *Session) {
	abandoned := session.Status() == domain.StatusInProgress
	if !session.Close() {
		return
	}
	s.sessions.Delete(session.ID())
	s.metrics.SessionDiscarded(abandoned)
	s.log.Info().Str("session_id", session.ID()).Bool("abandoned", abandoned).Msg("quiz session discarded")
}

func classifyGenerationError(err error) error {
	var cfgErr *domain.ConfigurationError
	var genErr *domain.GenerationError
	if errors.As(err, &cfgErr) || errors.As(err, &genErr) {
		return err
	}
	return &domain.GenerationError{Err: err}
}

func failureKind(err error) string {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return "configuration"
	}
	return "generation"
}
