package model

import "sync"

// Session is the per-conversation state bag: pending request queue, the
// single-flight processing flag and the conversation history. One Session is
// exclusively owned by one chat; all access goes through the mutex because the
// telegram adapter handles updates on multiple goroutines.
type Session struct {
	mu sync.Mutex

	AccountID    string
	RequestQueue []QueuedRequest
	Processing   bool
	Conversation []ChatMessage
	Model        string
	Usage        int     // total tokens spent since last reset
	PriceCents   float64 // total cost since last reset
}

func NewSession(accountID, defaultModel string) *Session {
	return &Session{AccountID: accountID, Model: defaultModel}
}

// Enqueue appends a request and reports whether the caller should start the
// drain loop. The flag flips to true at most once per idle period; concurrent
// callers while a drain is running only grow the queue.
func (s *Session) Enqueue(req QueuedRequest) (startDrain bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RequestQueue = append(s.RequestQueue, req)
	if !s.Processing {
		s.Processing = true
		return true
	}
	return false
}

// Pop removes and returns the queue head. ok=false means the queue is empty
// and the processing flag has been cleared, ending the drain atomically so a
// racing Enqueue either sees Processing still set or starts a fresh drain.
func (s *Session) Pop() (req QueuedRequest, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.RequestQueue) == 0 {
		s.Processing = false
		return QueuedRequest{}, false
	}
	req = s.RequestQueue[0]
	s.RequestQueue = s.RequestQueue[1:]
	return req, true
}

// StopDraining clears the processing flag without touching the queue. Used by
// the empty-prompt short circuit, which abandons the rest of the pass;
// leftover items are picked up by the next Enqueue.
func (s *Session) StopDraining() {
	s.mu.Lock()
	s.Processing = false
	s.mu.Unlock()
}

// Snapshot returns a copy of the conversation.
func (s *Session) Snapshot() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.Conversation))
	copy(out, s.Conversation)
	return out
}

// Append adds messages to the conversation history.
func (s *Session) Append(msgs ...ChatMessage) {
	s.mu.Lock()
	s.Conversation = append(s.Conversation, msgs...)
	s.mu.Unlock()
}

// Swap replaces the conversation wholesale. The drain loop uses it after a
// completion so other readers never observe a half-updated history.
func (s *Session) Swap(conv []ChatMessage) {
	s.mu.Lock()
	s.Conversation = conv
	s.mu.Unlock()
}

// Last returns the most recent message, if any.
func (s *Session) Last() (ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Conversation) == 0 {
		return ChatMessage{}, false
	}
	return s.Conversation[len(s.Conversation)-1], true
}

// Clear wipes the conversation history only. The drain loop calls it on a
// provider failure so a poisoned history cannot break subsequent requests.
func (s *Session) Clear() {
	s.mu.Lock()
	s.Conversation = nil
	s.mu.Unlock()
}

// AddSpend accumulates usage and price for the end-of-conversation report.
func (s *Session) AddSpend(tokens int, priceCents float64) {
	s.mu.Lock()
	s.Usage += tokens
	s.PriceCents += priceCents
	s.mu.Unlock()
}

// Reset ends the conversation: clears history and zeroes the accumulated
// usage/price, returning what was spent.
func (s *Session) Reset() (usage int, priceCents float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage, priceCents = s.Usage, s.PriceCents
	s.Conversation = nil
	s.Usage = 0
	s.PriceCents = 0
	return usage, priceCents
}

// SetModel pins the model used for subsequent requests.
func (s *Session) SetModel(name string) {
	s.mu.Lock()
	s.Model = name
	s.mu.Unlock()
}

// SelectedModel returns the pinned model, or "" when none was chosen.
func (s *Session) SelectedModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Model
}

// QueueLen reports the number of pending requests.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.RequestQueue)
}

// IsProcessing reports whether a drain loop currently owns the queue.
func (s *Session) IsProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Processing
}
