package model

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one authenticated session for a user. A user accumulates
// session rows over time; the newest open row for a matching client
// fingerprint is the one repeated logins extend.
type Session struct {
	ID             int64
	UUID           uuid.UUID
	UserID         int64
	IP             string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	ClosedAt       *time.Time // nil while the session is open
}

// Closed reports whether the session has been terminated. A closed session
// must never be extended or reused.
func (s *Session) Closed() bool {
	return s.ClosedAt != nil
}

// Expired reports whether the session's window has passed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// MatchesFingerprint reports whether the session was established from the
// given client ip and user agent.
func (s *Session) MatchesFingerprint(ip, userAgent string) bool {
	return s.IP == ip && s.UserAgent == userAgent
}

// SessionResponse represents session data for API responses.
type SessionResponse struct {
	ID             int64      `json:"id"`
	UUID           string     `json:"uuid"`
	UserID         int64      `json:"user_id"`
	IP             string     `json:"ip"`
	UserAgent      string     `json:"user_agent,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// NewSessionResponse converts a session row to its response shape.
func NewSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		UUID:           s.UUID.String(),
		UserID:         s.UserID,
		IP:             s.IP,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
		ClosedAt:       s.ClosedAt,
	}
}
