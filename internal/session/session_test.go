package session

import (
	"testing"
	"time"

	"github.com/rmehran/campuschat/internal/model"
)

func TestCreateAndGet(t *testing.T) {
	s := NewStore(0)

	token, sess := s.Create()
	if token == "" {
		t.Fatal("empty token")
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}
	if sess.Step != model.StepWelcome {
		t.Errorf("new session step = %v, want welcome", sess.Step)
	}

	got, ok := s.Get(token)
	if !ok {
		t.Fatal("session not found after Create")
	}
	if got != sess {
		t.Error("Get returned a different session instance")
	}
}

func TestTokensUnique(t *testing.T) {
	s := NewStore(0)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, _ := s.Create()
		if seen[token] {
			t.Fatalf("duplicate token after %d creates", i)
		}
		seen[token] = true
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore(0)
	if _, ok := s.Get(""); ok {
		t.Error("empty token resolved to a session")
	}
	if _, ok := s.Get("no-such-token"); ok {
		t.Error("unknown token resolved to a session")
	}
}

func TestExpiry(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	token, _ := s.Create()

	time.Sleep(25 * time.Millisecond)

	if _, ok := s.Get(token); ok {
		t.Error("expired session still retrievable")
	}
	if s.Len() != 0 {
		t.Errorf("store still holds %d sessions after expiry", s.Len())
	}
}

func TestGetRefreshesActivity(t *testing.T) {
	s := NewStore(40 * time.Millisecond)
	token, _ := s.Create()

	for i := 0; i < 3; i++ {
		time.Sleep(20 * time.Millisecond)
		if _, ok := s.Get(token); !ok {
			t.Fatalf("active session expired on access %d", i)
		}
	}
}

func TestDelete(t *testing.T) {
	s := NewStore(0)
	token, _ := s.Create()
	s.Delete(token)
	if _, ok := s.Get(token); ok {
		t.Error("deleted session still retrievable")
	}
}

func TestSweep(t *testing.T) {
	s := NewStore(5 * time.Millisecond)
	s.Create()
	s.Create()
	time.Sleep(15 * time.Millisecond)

	if n := s.sweep(); n != 2 {
		t.Errorf("sweep removed %d sessions, want 2", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after sweep, want 0", s.Len())
	}
}
