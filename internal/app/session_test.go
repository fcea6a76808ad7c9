package app_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"quiz-learning-service/internal/app"
	"quiz-learning-service/internal/domain"
)

// fiveQuestionQuiz has questions q0..q4, each with options a-d and "a" correct.
func fiveQuestionQuiz() domain.Quiz {
	quiz := domain.Quiz{ID: "quiz-5", Title: "Five"}
	for i := 0; i < 5; i++ {
		q := domain.Question{
			ID:            fmt.Sprintf("q%d", i),
			Text:          fmt.Sprintf("Question %d", i),
			CorrectAnswer: "a",
			Explanation:   fmt.Sprintf("Because of %d.", i),
		}
		for _, id := range []string{"a", "b", "c", "d"} {
			q.Options = append(q.Options, domain.Option{ID: id, Text: "Option " + id})
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}

func TestNewSessionStartsAtFirstQuestion(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	snap := s.Snapshot()

	if snap.CurrentIndex != 0 || snap.Status != domain.StatusInProgress {
		t.Fatalf("unexpected start state: %+v", snap)
	}
	if snap.RemainingSeconds != app.DefaultBudget || snap.Remaining != "5:00" {
		t.Fatalf("expected full budget, got %d (%s)", snap.RemainingSeconds, snap.Remaining)
	}
	if snap.AnsweredCount != 0 || len(s.Answers()) != 0 {
		t.Fatalf("expected no answers")
	}
	if snap.Current.CorrectOptionID != "" || snap.Current.Explanation != "" {
		t.Fatalf("answer key visible before reveal: %+v", snap.Current)
	}
	if snap.ProgressPercent != 20 || snap.IsLastQuestion {
		t.Fatalf("unexpected progress: %d%% last=%v", snap.ProgressPercent, snap.IsLastQuestion)
	}
}

func TestSelectAnswerReplacesEarlierChoice(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)

	if err := s.SelectAnswer("q0", "b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.SelectAnswer("q0", "c"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if got := s.Answers()["q0"]; got != "c" {
		t.Fatalf("expected latest answer c, got %q", got)
	}
	if len(s.Answers()) != 1 {
		t.Fatalf("expected a single answer, got %v", s.Answers())
	}
}

func TestSelectAnswerRejectsUnknownIDs(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)

	if err := s.SelectAnswer("nope", "a"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if err := s.SelectAnswer("q0", "z"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
	if len(s.Answers()) != 0 {
		t.Fatalf("rejected answers must not be recorded")
	}
}

func TestSubmitScoresThreeOfFive(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	answers := map[string]string{"q0": "a", "q1": "a", "q2": "a", "q3": "b", "q4": "c"}
	for q, o := range answers {
		if err := s.SelectAnswer(q, o); err != nil {
			t.Fatalf("select %s: %v", q, err)
		}
	}

	result := s.Submit()
	if result.CorrectCount != 3 || result.IncorrectCount != 2 || result.TotalCount != 5 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Percentage != 60 {
		t.Fatalf("expected 60%%, got %d", result.Percentage)
	}
	if s.Status() != domain.StatusCompleted || s.Trigger() != app.TriggerSubmit {
		t.Fatalf("expected completed by submit, got %s/%s", s.Status(), s.Trigger())
	}
	if len(result.Breakdown) != 5 || result.Breakdown[3].SelectedOptionID != "b" || result.Breakdown[3].CorrectOptionID != "a" {
		t.Fatalf("unexpected breakdown: %+v", result.Breakdown)
	}
}

func TestUnansweredQuestionsCountAsIncorrect(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	_ = s.SelectAnswer("q0", "a")

	result := s.Submit()
	if result.CorrectCount != 1 || result.IncorrectCount != 4 || result.Percentage != 20 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Breakdown[1].SelectedOptionID != "" || result.Breakdown[1].IsCorrect {
		t.Fatalf("unanswered question must be incorrect with no selection: %+v", result.Breakdown[1])
	}
}

func TestTimeoutWithoutAnswersScoresZero(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 3)

	if !s.Tick() || !s.Tick() {
		t.Fatalf("session should still be running")
	}
	if s.Tick() {
		t.Fatalf("third tick should exhaust the budget")
	}

	result, completed := s.Result()
	if !completed || s.Trigger() != app.TriggerTimeout {
		t.Fatalf("expected completion by timeout, got %v/%s", completed, s.Trigger())
	}
	if result.Percentage != 0 || result.CorrectCount != 0 || result.ElapsedSeconds != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if s.Tick() {
		t.Fatalf("ticks after completion are ignored")
	}
	if s.Snapshot().RemainingSeconds != 0 {
		t.Fatalf("remaining must not go below zero")
	}
}

func TestJumpThenSelect(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	if err := s.JumpTo(4); err != nil {
		t.Fatalf("jump to 4: %v", err)
	}
	if !s.Snapshot().IsLastQuestion {
		t.Fatalf("index 4 is the last question")
	}
	if err := s.JumpTo(0); err != nil {
		t.Fatalf("jump to 0: %v", err)
	}
	if err := s.SelectAnswer("q0", "b"); err != nil {
		t.Fatalf("select: %v", err)
	}

	snap := s.Snapshot()
	if snap.CurrentIndex != 0 || snap.SelectedOptionID != "b" {
		t.Fatalf("unexpected state: index=%d selected=%q", snap.CurrentIndex, snap.SelectedOptionID)
	}
}

func TestJumpOutOfRange(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	_ = s.JumpTo(2)

	for _, idx := range []int{-1, 5, 100} {
		if err := s.JumpTo(idx); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Fatalf("jump %d: expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if s.Snapshot().CurrentIndex != 2 {
		t.Fatalf("failed jump must not move")
	}
}

func TestNavigationBounds(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)

	s.Retreat()
	if s.Snapshot().CurrentIndex != 0 {
		t.Fatalf("retreat on first question must be a no-op")
	}
	for i := 0; i < 4; i++ {
		s.Advance()
	}
	if s.Snapshot().CurrentIndex != 4 || s.Status() != domain.StatusInProgress {
		t.Fatalf("expected last question in progress")
	}
	s.Retreat()
	if s.Snapshot().CurrentIndex != 3 {
		t.Fatalf("expected index 3, got %d", s.Snapshot().CurrentIndex)
	}
}

func TestAdvanceOnLastQuestionSubmits(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	_ = s.JumpTo(4)
	s.Advance()

	if s.Status() != domain.StatusCompleted || s.Trigger() != app.TriggerSubmit {
		t.Fatalf("expected submit from the last question")
	}
}

func TestToggleFlagTwiceRestores(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)

	flagged, err := s.ToggleFlag("q2")
	if err != nil || !flagged || !s.IsFlagged("q2") {
		t.Fatalf("expected q2 flagged, got %v %v", flagged, err)
	}
	if !s.Snapshot().Navigator[2].Flagged {
		t.Fatalf("navigator must show the flag")
	}
	flagged, err = s.ToggleFlag("q2")
	if err != nil || flagged || s.IsFlagged("q2") {
		t.Fatalf("expected q2 unflagged, got %v %v", flagged, err)
	}
	if _, err := s.ToggleFlag("nope"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestFlagsDoNotAffectScore(t *testing.T) {
	plain := app.NewSession("a", fiveQuestionQuiz(), 0)
	flagged := app.NewSession("b", fiveQuestionQuiz(), 0)
	for _, s := range []*app.Session{plain, flagged} {
		_ = s.SelectAnswer("q0", "a")
		_ = s.SelectAnswer("q1", "b")
	}
	_, _ = flagged.ToggleFlag("q0")
	_, _ = flagged.ToggleFlag("q1")

	if plain.Submit().Percentage != flagged.Submit().Percentage {
		t.Fatalf("flags changed the score")
	}
}

func TestRevealRequiresAnswerAndResetsOnNavigation(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)

	if s.RevealExplanation() {
		t.Fatalf("reveal must wait for an answer")
	}
	_ = s.SelectAnswer("q0", "c")
	if !s.RevealExplanation() {
		t.Fatalf("expected reveal after answering")
	}
	snap := s.Snapshot()
	if !snap.ExplanationRevealed || snap.Current.CorrectOptionID != "a" || snap.Current.Explanation != "Because of 0." {
		t.Fatalf("unexpected revealed view: %+v", snap.Current)
	}

	s.Advance()
	if s.Snapshot().ExplanationRevealed {
		t.Fatalf("reveal must reset on navigation")
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	var hooks atomic.Int32
	s.OnComplete(func(domain.Result, app.CompletionTrigger) { hooks.Add(1) })

	_ = s.SelectAnswer("q0", "a")
	first := s.Submit()
	second := s.Submit()

	if first.Percentage != second.Percentage || first.CorrectCount != second.CorrectCount {
		t.Fatalf("second submit changed the result: %+v vs %+v", first, second)
	}
	if hooks.Load() != 1 {
		t.Fatalf("expected completion hook once, got %d", hooks.Load())
	}
}

func TestCompletedSessionRejectsMutations(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	_ = s.SelectAnswer("q0", "a")
	before := s.Submit()

	if err := s.SelectAnswer("q1", "a"); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	if err := s.JumpTo(1); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	if _, err := s.ToggleFlag("q1"); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	s.Advance()
	s.Retreat()

	after, _ := s.Result()
	if after.CorrectCount != before.CorrectCount || s.Snapshot().CurrentIndex != 0 {
		t.Fatalf("completed session changed")
	}
	if s.Snapshot().Result == nil {
		t.Fatalf("completed snapshot must carry the result")
	}
}

func TestScoreIsMonotonicInCorrectAnswers(t *testing.T) {
	quiz := fiveQuestionQuiz()
	prev := -1
	for correct := 0; correct <= len(quiz.Questions); correct++ {
		s := app.NewSession("s", quiz, 0)
		for i := 0; i < correct; i++ {
			_ = s.SelectAnswer(quiz.Questions[i].ID, "a")
		}
		pct := s.Submit().Percentage
		if pct < prev || pct < 0 || pct > 100 {
			t.Fatalf("percentage %d after %d correct (previous %d)", pct, correct, prev)
		}
		prev = pct
	}
	if prev != 100 {
		t.Fatalf("all correct must score 100, got %d", prev)
	}
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	cases := []struct{ correct, total, want int }{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{3, 8, 38},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := app.Percentage(tc.correct, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestExitConfirmationRule(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 0)
	if s.RequiresExitConfirmation() {
		t.Fatalf("no answers, no confirmation")
	}
	_ = s.SelectAnswer("q0", "a")
	if !s.RequiresExitConfirmation() {
		t.Fatalf("answers in progress need confirmation")
	}
	s.Submit()
	if s.RequiresExitConfirmation() {
		t.Fatalf("completed sessions leave freely")
	}
}

func TestTimerCompletesSession(t *testing.T) {
	s := app.NewSession("s", fiveQuestionQuiz(), 2)
	done := make(chan app.CompletionTrigger, 1)
	s.OnComplete(func(_ domain.Result, trigger app.CompletionTrigger) { done <- trigger })

	s.StartTimer(5 * time.Millisecond)
	select {
	case trigger := <-done:
		if trigger != app.TriggerTimeout {
			t.Fatalf("expected timeout trigger, got %s", trigger)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never fired")
	}

	deadline := time.Now().Add(time.Second)
	for s.TimerRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.TimerRunning() {
		t.Fatalf("timer must stop after completion")
	}
	s.Close()
}

func TestSubmitAndCloseStopTimer(t *testing.T) {
	submitted := app.NewSession("a", fiveQuestionQuiz(), 0)
	submitted.StartTimer(time.Hour)
	if !submitted.TimerRunning() {
		t.Fatalf("timer should be running")
	}
	submitted.Submit()
	deadline := time.Now().Add(time.Second)
	for submitted.TimerRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if submitted.TimerRunning() {
		t.Fatalf("submit must stop the timer")
	}

	closed := app.NewSession("b", fiveQuestionQuiz(), 0)
	closed.StartTimer(time.Hour)
	if !closed.Close() {
		t.Fatalf("first close reports true")
	}
	if closed.TimerRunning() {
		t.Fatalf("close must stop the timer")
	}
	if closed.Close() {
		t.Fatalf("second close reports false")
	}
	closed.StartTimer(time.Millisecond)
	if closed.TimerRunning() {
		t.Fatalf("closed sessions never restart the timer")
	}
}

func TestClosedSessionRejectsMutations(t *testing.T) {
	var fired atomic.Int32
	s := app.NewSession("s", fiveQuestionQuiz(), 2)
	s.OnComplete(func(domain.Result, app.CompletionTrigger) { fired.Add(1) })
	if err := s.SelectAnswer("q0", "a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.Close()

	if err := s.SelectAnswer("q1", "a"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("select after close: got %v", err)
	}
	if _, err := s.ToggleFlag("q1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("flag after close: got %v", err)
	}
	if err := s.JumpTo(2); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("jump after close: got %v", err)
	}
	if s.RevealExplanation() {
		t.Fatalf("reveal after close must be refused")
	}
	s.Advance()
	s.Tick()
	s.Tick()
	result := s.Submit()

	if result.CorrectCount != 1 {
		t.Fatalf("closed session changed: %+v", result)
	}
	if _, completed := s.Result(); completed {
		t.Fatalf("closed session must not complete")
	}
	snap := s.Snapshot()
	if snap.CurrentIndex != 0 || snap.RemainingSeconds != 2 || snap.Status != domain.StatusInProgress {
		t.Fatalf("closed session state moved: %+v", snap)
	}
	if fired.Load() != 0 {
		t.Fatalf("completion hook fired %d times", fired.Load())
	}
}

func TestSnapshotUsesSessionClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := app.NewSessionWithClock("s", fiveQuestionQuiz(), 0, func() time.Time { return at })

	if got := s.Snapshot().UpdatedAt; !got.Equal(at) {
		t.Fatalf("updatedAt = %v, want %v", got, at)
	}
}
