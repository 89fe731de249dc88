// File: internal/domain/model/session_test.go
package model

import (
	"sync"
	"testing"
)

func TestEnqueueStartsDrainOnce(t *testing.T) {
	s := NewSession("acc", "gpt-4o")

	if !s.Enqueue(QueuedRequest{ID: "a"}) {
		t.Fatal("first Enqueue must start the drain")
	}
	if s.Enqueue(QueuedRequest{ID: "b"}) {
		t.Fatal("second Enqueue started a second drain")
	}
	if n := s.QueueLen(); n != 2 {
		t.Errorf("queue length = %d, want 2", n)
	}
}

func TestPopFIFOAndFlagClear(t *testing.T) {
	s := NewSession("acc", "gpt-4o")
	s.Enqueue(QueuedRequest{ID: "a"})
	s.Enqueue(QueuedRequest{ID: "b"})

	first, ok := s.Pop()
	if !ok || first.ID != "a" {
		t.Fatalf("first Pop = %v, %v", first.ID, ok)
	}
	second, ok := s.Pop()
	if !ok || second.ID != "b" {
		t.Fatalf("second Pop = %v, %v", second.ID, ok)
	}
	if s.IsProcessing() != true {
		t.Error("processing flag cleared while queue still owned")
	}
	if _, ok := s.Pop(); ok {
		t.Fatal("Pop on empty queue returned ok")
	}
	if s.IsProcessing() {
		t.Error("empty Pop did not clear the processing flag")
	}

	// A fresh Enqueue after the drain ended must start a new one.
	if !s.Enqueue(QueuedRequest{ID: "c"}) {
		t.Error("Enqueue after drain end did not start a drain")
	}
}

func TestEnqueueUnderContention(t *testing.T) {
	s := NewSession("acc", "gpt-4o")

	const n = 100
	var wg sync.WaitGroup
	starts := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			starts <- s.Enqueue(QueuedRequest{})
		}()
	}
	wg.Wait()
	close(starts)

	drains := 0
	for started := range starts {
		if started {
			drains++
		}
	}
	if drains != 1 {
		t.Errorf("%d drains started for one idle period, want 1", drains)
	}
	if got := s.QueueLen(); got != n {
		t.Errorf("queue length = %d, want %d", got, n)
	}
}

func TestStopDrainingKeepsQueue(t *testing.T) {
	s := NewSession("acc", "gpt-4o")
	s.Enqueue(QueuedRequest{ID: "a"})
	s.Enqueue(QueuedRequest{ID: "b"})
	s.Pop()

	s.StopDraining()
	if s.IsProcessing() {
		t.Error("StopDraining left the processing flag set")
	}
	if n := s.QueueLen(); n != 1 {
		t.Errorf("StopDraining changed the queue, length = %d", n)
	}
}

func TestResetReturnsSpend(t *testing.T) {
	s := NewSession("acc", "gpt-4o")
	s.Append(ChatMessage{Role: RoleUser, Content: "q"}, ChatMessage{Role: RoleAssistant, Content: "a"})
	s.AddSpend(100, 1.5)
	s.AddSpend(50, 0.5)

	usage, price := s.Reset()
	if usage != 150 || price != 2 {
		t.Errorf("Reset = %d, %f, want 150, 2", usage, price)
	}
	if len(s.Snapshot()) != 0 {
		t.Error("Reset did not clear the conversation")
	}
	if usage, price = s.Reset(); usage != 0 || price != 0 {
		t.Errorf("second Reset = %d, %f, want zeroes", usage, price)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewSession("acc", "gpt-4o")
	s.Append(ChatMessage{Role: RoleUser, Content: "original"})

	snap := s.Snapshot()
	snap[0].Content = "mutated"
	if got, _ := s.Last(); got.Content != "original" {
		t.Error("mutating a snapshot leaked into the session")
	}
}
