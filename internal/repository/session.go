package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate-go/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// sessionColumns is the shared column list for session row scans.
const sessionColumns = `id, uuid, user_id, ip, user_agent, created_at, last_activity_at, expires_at, closed_at`

// SessionRepository handles session persistence operations.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row and sets the generated ID on the struct.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `INSERT INTO sessions (uuid, user_id, ip, user_agent, created_at, last_activity_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		session.UUID.String(),
		session.UserID,
		session.IP,
		session.UserAgent,
		session.CreatedAt,
		session.LastActivityAt,
		session.ExpiresAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	session.ID = id
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetLatest retrieves the most recently created session for a user,
// open or closed. Returns ErrSessionNotFound when the user has none.
func (r *SessionRepository) GetLatest(ctx context.Context, userID int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`

	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

// List retrieves the most recently created sessions across all users.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListByUser retrieves a user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Extend moves a session's expiry window forward.
func (r *SessionRepository) Extend(ctx context.Context, id int64, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = ? WHERE id = ?`
	return r.update(ctx, query, expiresAt, id)
}

// Touch records activity on a session.
func (r *SessionRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE sessions SET last_activity_at = ? WHERE id = ?`
	return r.update(ctx, query, at, id)
}

// Close terminates a session. Closing an already-closed session keeps the
// original closed_at timestamp.
func (r *SessionRepository) Close(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

func (r *SessionRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *SessionRepository) scanOne(row *sql.Row) (*model.Session, error) {
	session := &model.Session{}
	var rawUUID string
	var closedAt sql.NullTime

	err := row.Scan(
		&session.ID, &rawUUID, &session.UserID, &session.IP, &session.UserAgent,
		&session.CreatedAt, &session.LastActivityAt, &session.ExpiresAt, &closedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.UUID, err = uuid.Parse(rawUUID); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		session.ClosedAt = &closedAt.Time
	}

	return session, nil
}

func (r *SessionRepository) scanAll(rows *sql.Rows) ([]model.Session, error) {
	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		var rawUUID string
		var closedAt sql.NullTime

		if err := rows.Scan(
			&s.ID, &rawUUID, &s.UserID, &s.IP, &s.UserAgent,
			&s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt, &closedAt,
		); err != nil {
			return nil, err
		}

		parsed, err := uuid.Parse(rawUUID)
		if err != nil {
			return nil, err
		}
		s.UUID = parsed
		if closedAt.Valid {
			s.ClosedAt = &closedAt.Time
		}

		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
