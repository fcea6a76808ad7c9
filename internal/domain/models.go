package domain

import (
	"fmt"
	"time"
)

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Option returns the option with the given id.
func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Quiz is an ordered, immutable collection of questions.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	Format      QuizFormat `json:"quizFormat,omitempty"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Question looks up a question by id and returns its position.
func (q Quiz) Question(id string) (Question, int, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return q.Questions[i], i, true
		}
	}
	return Question{}, -1, false
}

// Validate checks the structural invariants every quiz must hold before a
// session can be built on top of it.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz %q: need at least one question", q.ID)
	}
	seenQuestions := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("quiz %q: question %d has no id", q.ID, i)
		}
		if _, dup := seenQuestions[question.ID]; dup {
			return fmt.Errorf("quiz %q: duplicate question id %q", q.ID, question.ID)
		}
		seenQuestions[question.ID] = struct{}{}

		if len(question.Options) == 0 {
			return fmt.Errorf("quiz %q: question %q has no options", q.ID, question.ID)
		}
		seenOptions := make(map[string]struct{}, len(question.Options))
		for _, opt := range question.Options {
			if _, dup := seenOptions[opt.ID]; dup {
				return fmt.Errorf("quiz %q: question %q has duplicate option %q", q.ID, question.ID, opt.ID)
			}
			seenOptions[opt.ID] = struct{}{}
		}
		if _, ok := seenOptions[question.CorrectAnswer]; !ok {
			return fmt.Errorf("quiz %q: correct answer %q of question %q is not an option", q.ID, question.CorrectAnswer, question.ID)
		}
	}
	return nil
}

// SessionStatus is the lifecycle state of a quiz-taking session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
)

// QuestionResult is the per-question line of a result breakdown.
type QuestionResult struct {
	QuestionID       string `json:"questionId"`
	Text             string `json:"text"`
	IsCorrect        bool   `json:"isCorrect"`
	SelectedOptionID string `json:"selectedOptionId,omitempty"` // empty when unanswered
	SelectedText     string `json:"selectedText,omitempty"`
	CorrectOptionID  string `json:"correctOptionId"`
	CorrectText      string `json:"correctText"`
	Explanation      string `json:"explanation,omitempty"`
}

// Result summarizes a completed session. It is always derived from the
// session's answers and never stored on its own.
type Result struct {
	SessionID      string           `json:"sessionId"`
	QuizID         string           `json:"quizId"`
	CorrectCount   int              `json:"correctCount"`
	IncorrectCount int              `json:"incorrectCount"`
	TotalCount     int              `json:"totalCount"`
	Percentage     int              `json:"percentage"`
	ElapsedSeconds int              `json:"elapsedSeconds"`
	Elapsed        string           `json:"elapsed"`
	Breakdown      []QuestionResult `json:"breakdown"`
}

// QuestionView is a question as shown while the quiz is being taken.
// The correct answer and explanation are only filled once revealed.
type QuestionView struct {
	ID              string   `json:"id"`
	Number          int      `json:"number"`
	Text            string   `json:"text"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
}

// NavigatorEntry backs one cell of the question navigator grid.
type NavigatorEntry struct {
	Index      int    `json:"index"`
	QuestionID string `json:"questionId"`
	Answered   bool   `json:"answered"`
	Flagged    bool   `json:"flagged"`
	Current    bool   `json:"current"`
}

// SessionSnapshot is a read-only view of a session for the presentation layer.
type SessionSnapshot struct {
	SessionID           string           `json:"sessionId"`
	QuizID              string           `json:"quizId"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	Status              SessionStatus    `json:"status"`
	CurrentIndex        int              `json:"currentIndex"`
	TotalQuestions      int              `json:"totalQuestions"`
	Current             QuestionView     `json:"current"`
	SelectedOptionID    string           `json:"selectedOptionId,omitempty"`
	Progress            float64          `json:"progress"`
	ProgressPercent     int              `json:"progressPercent"`
	RemainingSeconds    int              `json:"remainingSeconds"`
	Remaining           string           `json:"remaining"`
	ExplanationRevealed bool             `json:"explanationRevealed"`
	IsLastQuestion      bool             `json:"isLastQuestion"`
	AnsweredCount       int              `json:"answeredCount"`
	Navigator           []NavigatorEntry `json:"navigator"`
	Result              *Result          `json:"result,omitempty"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
