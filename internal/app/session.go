package app

import (
	"sync"
	"time"

	"quiz-learning-service/internal/domain"
)

// DefaultBudget is the time allowed for one attempt.
const DefaultBudget = 300

// CompletionTrigger records why a session completed.
type CompletionTrigger string

const (
	TriggerSubmit  CompletionTrigger = "submit"
	TriggerTimeout CompletionTrigger = "timeout"
)

// Session is the state of one attempt at one quiz. All mutation goes through
// its methods; the quiz itself is never modified.
type Session struct {
	id        string
	quiz      domain.Quiz
	budget int
	now    func() time.Time

	mu          sync.RWMutex
	current     int
	answers     map[string]string
	flagged     map[string]struct{}
	revealed    bool
	remaining   int
	status      domain.SessionStatus
	trigger     CompletionTrigger
	subscribers map[chan domain.SessionSnapshot]struct{}
	onComplete  func(domain.Result, CompletionTrigger)

	timerStop    chan struct{}
	timerDone    chan struct{}
	timerStopped bool
	closed       bool
}

// NewSession is exported for infrastructure layers and tests that build sessions directly.
func NewSession(id string, quiz domain.Quiz, budget int) *Session {
	return NewSessionWithClock(id, quiz, budget, time.Now)
}

// NewSessionWithClock takes the clock used for snapshot timestamps.
func NewSessionWithClock(id string, quiz domain.Quiz, budget int, now func() time.Time) *Session {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Session{
		id:          id,
		quiz:        quiz,
		budget:      budget,
		now:         now,
		answers:     make(map[string]string),
		flagged:     make(map[string]struct{}),
		remaining:   budget,
		status:      domain.StatusInProgress,
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Quiz() domain.Quiz { return s.quiz }

// Status reports the lifecycle state.
func (s *Session) Status() domain.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// OnComplete registers a hook invoked once, outside the session lock, when
// the session completes.
func (s *Session) OnComplete(fn func(domain.Result, CompletionTrigger)) {
	s.mu.Lock()
	s.onComplete = fn
	s.mu.Unlock()
}

// SelectAnswer records optionID as the answer to questionID, replacing any
// earlier choice.
func (s *Session) SelectAnswer(questionID, optionID string) error {
	question, _, ok := s.quiz.Question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if _, ok := question.Option(optionID); !ok {
		return domain.ErrOptionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionNotFound
	}
	if s.status != domain.StatusInProgress {
		return domain.ErrSessionCompleted
	}
	if s.answers[questionID] == optionID {
		return nil
	}
	s.answers[questionID] = optionID
	s.broadcastLocked()
	return nil
}

// RevealExplanation shows the explanation of the current question. The
// question must be answered first. It reports whether the explanation is shown.
func (s *Session) RevealExplanation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusInProgress {
		return false
	}
	if s.revealed {
		return true
	}
	if _, answered := s.answers[s.quiz.Questions[s.current].ID]; !answered {
		return false
	}
	s.revealed = true
	s.broadcastLocked()
	return true
}

// Advance moves to the next question. On the last question it submits.
func (s *Session) Advance() {
	s.mu.Lock()
	if s.closed || s.status != domain.StatusInProgress {
		s.mu.Unlock()
		return
	}
	if s.current < len(s.quiz.Questions)-1 {
		s.current++
		s.revealed = false
		s.broadcastLocked()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.Submit()
}

// Retreat moves to the previous question; no-op on the first one.
func (s *Session) Retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != domain.StatusInProgress || s.current == 0 {
		return
	}
	s.current--
	s.revealed = false
	s.broadcastLocked()
}

// JumpTo moves directly to index, whatever the answered state of either question.
func (s *Session) JumpTo(index int) error {
	if index < 0 || index >= len(s.quiz.Questions) {
		return domain.ErrIndexOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionNotFound
	}
	if s.status != domain.StatusInProgress {
		return domain.ErrSessionCompleted
	}
	s.current = index
	s.revealed = false
	s.broadcastLocked()
	return nil
}

// ToggleFlag marks or unmarks a question for review. Flags never affect scoring.
func (s *Session) ToggleFlag(questionID string) (bool, error) {
	if _, _, ok := s.quiz.Question(questionID); !ok {
		return false, domain.ErrQuestionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrSessionNotFound
	}
	if s.status != domain.StatusInProgress {
		return false, domain.ErrSessionCompleted
	}
	_, flagged := s.flagged[questionID]
	if flagged {
		delete(s.flagged, questionID)
	} else {
		s.flagged[questionID] = struct{}{}
	}
	s.broadcastLocked()
	return !flagged, nil
}

// Tick counts down one second and submits when time runs out. It reports
// whether the session is still in progress afterwards.
func (s *Session) Tick() bool {
	s.mu.Lock()
	if s.closed || s.status != domain.StatusInProgress {
		s.mu.Unlock()
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	completed := false
	if s.remaining == 0 {
		completed = s.completeLocked(TriggerTimeout)
	}
	s.broadcastLocked()
	hook := s.onComplete
	s.mu.Unlock()

	if completed {
		s.fireComplete(hook, TriggerTimeout)
	}
	return !completed
}

// Submit completes the session and returns its result. Calling it again
// returns the same result and changes nothing. A closed session is never
// completed; its current result is returned as is.
func (s *Session) Submit() domain.Result {
	s.mu.Lock()
	completed := !s.closed && s.completeLocked(TriggerSubmit)
	if completed {
		s.broadcastLocked()
	}
	result := s.resultLocked()
	hook := s.onComplete
	s.mu.Unlock()

	if completed {
		s.fireComplete(hook, TriggerSubmit)
	}
	return result
}

// Result returns the derived result and whether the session has completed.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resultLocked(), s.status == domain.StatusCompleted
}

// Trigger reports how the session completed, empty while in progress.
func (s *Session) Trigger() CompletionTrigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trigger
}

// RequiresExitConfirmation is true when leaving now would lose recorded answers.
func (s *Session) RequiresExitConfirmation() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == domain.StatusInProgress && len(s.answers) > 0
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// IsFlagged reports whether questionID is marked for review.
func (s *Session) IsFlagged(questionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.flagged[questionID]
	return ok
}

// Snapshot returns the current read view.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) completeLocked(trigger CompletionTrigger) bool {
	if s.status == domain.StatusCompleted {
		return false
	}
	s.status = domain.StatusCompleted
	s.trigger = trigger
	s.revealed = false
	s.stopTimerLocked()
	return true
}

func (s *Session) fireComplete(hook func(domain.Result, CompletionTrigger), trigger CompletionTrigger) {
	if hook == nil {
		return
	}
	result, _ := s.Result()
	hook(result, trigger)
}

func (s *Session) resultLocked() domain.Result {
	total := len(s.quiz.Questions)
	result := domain.Result{
		SessionID:  s.id,
		QuizID:     s.quiz.ID,
		TotalCount: total,
		Breakdown:  make([]domain.QuestionResult, 0, total),
	}
	for _, q := range s.quiz.Questions {
		selected, answered := s.answers[q.ID]
		line := domain.QuestionResult{
			QuestionID:      q.ID,
			Text:            q.Text,
			IsCorrect:       answered && selected == q.CorrectAnswer,
			CorrectOptionID: q.CorrectAnswer,
			Explanation:     q.Explanation,
		}
		if opt, ok := q.Option(q.CorrectAnswer); ok {
			line.CorrectText = opt.Text
		}
		if answered {
			line.SelectedOptionID = selected
			if opt, ok := q.Option(selected); ok {
				line.SelectedText = opt.Text
			}
		}
		if line.IsCorrect {
			result.CorrectCount++
		}
		result.Breakdown = append(result.Breakdown, line)
	}
	result.IncorrectCount = total - result.CorrectCount
	result.Percentage = Percentage(result.CorrectCount, total)
	result.ElapsedSeconds = s.budget - s.remaining
	result.Elapsed = domain.FormatClock(result.ElapsedSeconds)
	return result
}

// Percentage is correct/total*100 rounded half up.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	total := len(s.quiz.Questions)
	question := s.quiz.Questions[s.current]
	completed := s.status == domain.StatusCompleted

	view := domain.QuestionView{
		ID:      question.ID,
		Number:  s.current + 1,
		Text:    question.Text,
		Options: question.Options,
	}
	if s.revealed || completed {
		view.CorrectOptionID = question.CorrectAnswer
		view.Explanation = question.Explanation
	}

	navigator := make([]domain.NavigatorEntry, total)
	for i, q := range s.quiz.Questions {
		_, answered := s.answers[q.ID]
		_, flagged := s.flagged[q.ID]
		navigator[i] = domain.NavigatorEntry{
			Index:      i,
			QuestionID: q.ID,
			Answered:   answered,
			Flagged:    flagged,
			Current:    i == s.current,
		}
	}

	progress := float64(s.current+1) / float64(total)
	snap := domain.SessionSnapshot{
		SessionID:           s.id,
		QuizID:              s.quiz.ID,
		Title:               s.quiz.Title,
		Description:         s.quiz.Description,
		Status:              s.status,
		CurrentIndex:        s.current,
		TotalQuestions:      total,
		Current:             view,
		SelectedOptionID:    s.answers[question.ID],
		Progress:            progress,
		ProgressPercent:     Percentage(s.current+1, total),
		RemainingSeconds:    s.remaining,
		Remaining:           domain.FormatClock(s.remaining),
		ExplanationRevealed: s.revealed,
		IsLastQuestion:      s.current == total-1,
		AnsweredCount:       len(s.answers),
		Navigator:           navigator,
		UpdatedAt:           s.now(),
	}
	if completed {
		result := s.resultLocked()
		snap.Result = &result
	}
	return snap
}

func (s *Session) subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	// ch is fresh and buffered, so this never blocks under the lock
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot so a slow reader never blocks a transition
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// StartTimer starts the countdown, ticking every interval until the session
// completes or Close is called. Calling it twice has no effect.
func (s *Session) StartTimer(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	s.mu.Lock()
	if s.timerStop != nil || s.closed || s.status != domain.StatusInProgress {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	s.timerStop, s.timerDone = stop, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !s.Tick() {
					return
				}
			}
		}
	}()
}

// TimerRunning reports whether the countdown goroutine is still active.
func (s *Session) TimerRunning() bool {
	s.mu.RLock()
	done := s.timerDone
	s.mu.RUnlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (s *Session) stopTimerLocked() {
	if s.timerStop != nil && !s.timerStopped {
		close(s.timerStop)
		s.timerStopped = true
	}
}

// Close releases the timer and all subscriptions. It waits for the countdown
// goroutine to exit and must not be called from an OnComplete hook. Only the
// first call reports true.
func (s *Session) Close() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.stopTimerLocked()
	done := s.timerDone
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	return true
}
