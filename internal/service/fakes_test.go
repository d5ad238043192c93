package service

import (
	"context"
	"sort"
	"time"

	"github.com/authgate/authgate-go/internal/model"
	"github.com/authgate/authgate-go/internal/repository"
)

// fakeUserStore is an in-memory UserStore for service tests.
type fakeUserStore struct {
	users  map[int64]*model.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*model.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *model.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}

	f.nextID++
	user.ID = f.nextID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	return nil
}

// fakeSessionStore is an in-memory SessionStore for service tests.
type fakeSessionStore struct {
	sessions map[int64]*model.Session
	nextID   int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[int64]*model.Session)}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *model.Session) error {
	f.nextID++
	session.ID = f.nextID

	stored := *session
	f.sessions[session.ID] = &stored
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) GetLatest(ctx context.Context, userID int64) (*model.Session, error) {
	var latest *model.Session
	for _, session := range f.sessions {
		if session.UserID != userID {
			continue
		}
		if latest == nil || newerThan(session, latest) {
			latest = session
		}
	}
	if latest == nil {
		return nil, repository.ErrSessionNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeSessionStore) List(ctx context.Context, limit int) ([]model.Session, error) {
	return f.collect(limit, func(*model.Session) bool { return true }), nil
}

func (f *fakeSessionStore) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Session, error) {
	return f.collect(limit, func(s *model.Session) bool { return s.UserID == userID }), nil
}

func (f *fakeSessionStore) Extend(ctx context.Context, id int64, expiresAt time.Time) error {
	session, ok := f.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	return nil
}

func (f *fakeSessionStore) Touch(ctx context.Context, id int64, at time.Time) error {
	session, ok := f.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.LastActivityAt = at
	return nil
}

func (f *fakeSessionStore) Close(ctx context.Context, id int64, at time.Time) error {
	session, ok := f.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if session.ClosedAt == nil {
		closed := at
		session.ClosedAt = &closed
	}
	return nil
}

func (f *fakeSessionStore) collect(limit int, keep func(*model.Session) bool) []model.Session {
	var out []model.Session
	for _, session := range f.sessions {
		if keep(session) {
			out = append(out, *session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerThan(&out[i], &out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// newerThan orders sessions like the repository: created_at DESC, id DESC.
func newerThan(a, b *model.Session) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
