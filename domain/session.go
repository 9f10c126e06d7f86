package domain

import "time"

// Session is the server-side half of a login; the JWT only points at it.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession opens a session for userID lasting ttl from now.
func NewSession(id string, userID int64, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// ExtendFrom moves the expiry to now+ttl.
func (s *Session) ExtendFrom(now time.Time, ttl time.Duration) {
	s.ExpiresAt = now.Add(ttl)
}
