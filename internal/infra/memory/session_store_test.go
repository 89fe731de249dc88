package memory

import (
	"sync"
	"testing"
)

func TestGetCreatesOnce(t *testing.T) {
	s := NewSessionStore("gpt-4o")

	a := s.Get("100")
	if a == nil {
		t.Fatal("Get returned nil")
	}
	if a.SelectedModel() != "gpt-4o" {
		t.Errorf("default model = %q", a.SelectedModel())
	}
	if b := s.Get("100"); b != a {
		t.Error("Get returned a different session for the same account")
	}
	if s.Get("200") == a {
		t.Error("distinct accounts share a session")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestGetUnderContention(t *testing.T) {
	s := NewSessionStore("gpt-4o")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Get("same")
		}()
	}
	wg.Wait()
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1 after concurrent Get on one account", s.Len())
	}
}
