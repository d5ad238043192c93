package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate-go/internal/model"
	"github.com/authgate/authgate-go/internal/repository"
)

var ErrSessionClosed = errors.New("session is closed")

// SessionStore is the minimal session persistence surface needed by the
// session service.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	GetLatest(ctx context.Context, userID int64) (*model.Session, error)
	List(ctx context.Context, limit int) ([]model.Session, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Session, error)
	Extend(ctx context.Context, id int64, expiresAt time.Time) error
	Touch(ctx context.Context, id int64, at time.Time) error
	Close(ctx context.Context, id int64, at time.Time) error
}

// SessionService manages session lifecycle: creation, extension, activity
// tracking, and closure. Sessions are advisory; concurrent updates are
// last-write-wins and the service never caches rows across calls.
type SessionService struct {
	store  SessionStore
	expiry time.Duration
}

// NewSessionService creates a new SessionService. expiry is the window
// applied to new and extended sessions.
func NewSessionService(store SessionStore, expiry time.Duration) *SessionService {
	return &SessionService{store: store, expiry: expiry}
}

// Latest returns the most recently created session for a user, open or
// closed, or nil when the user has none.
func (s *SessionService) Latest(ctx context.Context, userID int64) (*model.Session, error) {
	session, err := s.store.GetLatest(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// Find returns the session with the given ID.
func (s *SessionService) Find(ctx context.Context, id int64) (*model.Session, error) {
	return s.store.GetByID(ctx, id)
}

// CreateForUser allocates a fresh session bound to the client fingerprint.
func (s *SessionService) CreateForUser(ctx context.Context, userID int64, ip, userAgent string) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		UUID:           uuid.New(),
		UserID:         userID,
		IP:             ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.expiry),
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Extend pushes the session's expiry to now plus the given duration.
// Closed sessions are terminal and cannot be extended.
func (s *SessionService) Extend(ctx context.Context, session *model.Session, d time.Duration) (*model.Session, error) {
	if session.Closed() {
		return nil, ErrSessionClosed
	}

	expiresAt := time.Now().Add(d)
	if err := s.store.Extend(ctx, session.ID, expiresAt); err != nil {
		return nil, err
	}

	session.ExpiresAt = expiresAt
	return session, nil
}

// UpdateLastActivity records activity on the session.
func (s *SessionService) UpdateLastActivity(ctx context.Context, session *model.Session) error {
	now := time.Now()
	if err := s.store.Touch(ctx, session.ID, now); err != nil {
		return err
	}

	session.LastActivityAt = now
	return nil
}

// Close terminates the session. Closing is idempotent at the store level;
// the first closure's timestamp wins.
func (s *SessionService) Close(ctx context.Context, session *model.Session) error {
	now := time.Now()
	if err := s.store.Close(ctx, session.ID, now); err != nil {
		return err
	}

	if session.ClosedAt == nil {
		session.ClosedAt = &now
	}
	return nil
}

// Track resolves the session to bind a new token to. The latest session is
// reused and its window refreshed only when the same client fingerprint
// re-authenticates against a still-open session; a missing latest session,
// a fingerprint change, or a closed latest session forces a new row. This
// bounds live sessions per fingerprint while surfacing fingerprint drift as
// a new session instead of silently extending a possibly stolen one.
func (s *SessionService) Track(ctx context.Context, userID int64, ip, userAgent string) (*model.Session, error) {
	latest, err := s.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}

	if latest == nil || latest.Closed() || !latest.MatchesFingerprint(ip, userAgent) {
		return s.CreateForUser(ctx, userID, ip, userAgent)
	}

	return s.Extend(ctx, latest, s.expiry)
}

// History returns a user's sessions, newest first.
func (s *SessionService) History(ctx context.Context, userID int64, limit int) ([]model.Session, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// CloseStale scans the most recent sessions and closes open rows whose
// expiry has passed. Returns the number of sessions closed.
func (s *SessionService) CloseStale(ctx context.Context, limit int) (int, error) {
	sessions, err := s.store.List(ctx, limit)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	closed := 0
	for i := range sessions {
		session := &sessions[i]
		if session.Closed() || !session.Expired(now) {
			continue
		}
		if err := s.store.Close(ctx, session.ID, now); err != nil {
			return closed, err
		}
		closed++
	}

	return closed, nil
}
