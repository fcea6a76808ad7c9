package memory

import (
	"testing"

	"quiz-learning-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	session := app.NewSession("s-1", sampleQuiz(), 60)

	store.Put(session)
	got, ok := store.Get("s-1")
	if !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
	store.Delete("s-1") // deleting twice is harmless
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}
