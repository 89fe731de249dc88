package repository

import "telegram-one-bot/internal/domain/model"

// SessionStore hands out per-account sessions. Sessions are created lazily on
// first interaction and live for the process lifetime; an explicit
// end-of-conversation command resets their contents but never deletes them.
type SessionStore interface {
	// Get returns the session for an account, creating it when absent.
	Get(accountID string) *model.Session

	// Len reports how many sessions are live, for the stats surface.
	Len() int
}
