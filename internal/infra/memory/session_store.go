package memory

import (
	"sync"

	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in process memory, created lazily on first
// interaction. Nothing is persisted; a restart loses queued requests and
// conversation history, which the queue's at-most-once contract allows.
type SessionStore struct {
	mu           sync.Mutex
	sessions     map[string]*model.Session
	defaultModel string
}

func NewSessionStore(defaultModel string) *SessionStore {
	return &SessionStore{
		sessions:     make(map[string]*model.Session),
		defaultModel: defaultModel,
	}
}

func (s *SessionStore) Get(accountID string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[accountID]; ok {
		return sess
	}
	sess := model.NewSession(accountID, s.defaultModel)
	s.sessions[accountID] = sess
	return sess
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
