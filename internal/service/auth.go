package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authgate/authgate-go/internal/crypto"
	"github.com/authgate/authgate-go/internal/model"
	"github.com/authgate/authgate-go/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// that login failures never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized covers every request-time authentication failure:
	// bad token, fingerprint mismatch, dead session, or missing user.
	ErrUnauthorized = errors.New("not authorized")

	ErrNameRequired     = errors.New("name is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrEmailTaken       = errors.New("email already taken")
)

// UserStore is the minimal user persistence surface needed by the auth
// service.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// UserCreatedHook is invoked after a user has been persisted by Register.
type UserCreatedHook func(ctx context.Context, user *model.User)

// AuthService handles credential verification, token issuance, and
// request-time authentication.
type AuthService struct {
	users      UserStore
	sessions   *SessionService
	jwtSecret  string
	jwtExpiry  time.Duration
	bcryptCost int
	onCreated  []UserCreatedHook
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, sessions *SessionService, secret string, expiry time.Duration, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwtSecret:  secret,
		jwtExpiry:  expiry,
		bcryptCost: bcryptCost,
	}
}

// OnUserCreated registers a hook invoked after each successful registration.
// Hooks run synchronously in registration order and must not block.
func (s *AuthService) OnUserCreated(hook UserCreatedHook) {
	s.onCreated = append(s.onCreated, hook)
}

// Login verifies credentials and issues a bearer token bound to the client
// fingerprint. The session backing the token is either a fresh row or the
// user's latest open session with a refreshed window, depending on whether
// the fingerprint matches.
func (s *AuthService) Login(ctx context.Context, ip, userAgent string, req model.LoginRequest) (model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}

	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	session, err := s.sessions.Track(ctx, user.ID, ip, userAgent)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return s.issueToken(user, session)
}

// Authenticate validates a bearer token against the client fingerprint and
// the live session state, returning a fresh copy of the user record. The
// token's embedded session snapshot must match the caller's ip and user
// agent, and the underlying session row must still be open and unexpired.
func (s *AuthService) Authenticate(ctx context.Context, token, ip, userAgent string) (*model.User, error) {
	claims, err := crypto.VerifyToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	if claims.Session.IP != ip {
		return nil, fmt.Errorf("%w: invalid IP address", ErrUnauthorized)
	}
	if claims.Session.UserAgent != userAgent {
		return nil, fmt.Errorf("%w: invalid user agent", ErrUnauthorized)
	}

	session, err := s.sessions.Find(ctx, claims.Session.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: session not found", ErrUnauthorized)
		}
		return nil, err
	}
	if session.Closed() {
		return nil, fmt.Errorf("%w: session closed", ErrUnauthorized)
	}
	if session.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: session expired", ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, claims.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return nil, err
	}

	// Best effort; activity tracking never fails a request.
	_ = s.sessions.UpdateLastActivity(ctx, session)

	return user, nil
}

// Refresh re-issues a token from a still-valid one without requiring
// credentials. The rotation runs against the session's stored fingerprint,
// not the caller's, so a refresh from a new address does not rebind the
// session.
func (s *AuthService) Refresh(ctx context.Context, token string) (model.TokenResponse, error) {
	claims, err := crypto.VerifyToken(token, s.jwtSecret)
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, claims.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.TokenResponse{}, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return model.TokenResponse{}, err
	}

	session, err := s.sessions.Track(ctx, user.ID, claims.Session.IP, claims.Session.UserAgent)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return s.issueToken(user, session)
}

// Logout closes the session the token was issued against. The token itself
// remains cryptographically valid until expiry, but authentication rejects
// closed sessions.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := crypto.VerifyToken(token, s.jwtSecret)
	if err != nil {
		return fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	session, err := s.sessions.Find(ctx, claims.Session.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return fmt.Errorf("%w: session not found", ErrUnauthorized)
		}
		return err
	}

	return s.sessions.Close(ctx, session)
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.UserResponse, error) {
	if req.Name == "" {
		return model.UserResponse{}, ErrNameRequired
	}
	if req.Email == "" {
		return model.UserResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.UserResponse{}, ErrPasswordRequired
	}

	hash, err := crypto.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return model.UserResponse{}, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, ErrEmailTaken
		}
		return model.UserResponse{}, err
	}

	for _, hook := range s.onCreated {
		hook(ctx, user)
	}

	return model.NewUserResponse(user), nil
}

// ChangePassword replaces the user's password after verifying the current
// one. A failed verification surfaces as ErrUnauthorized, not as a
// credential hint.
func (s *AuthService) ChangePassword(ctx context.Context, user *model.User, req model.ChangePasswordRequest) error {
	if user == nil {
		return ErrUnauthorized
	}
	if req.NewPassword == "" {
		return ErrPasswordRequired
	}
	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return ErrUnauthorized
	}

	hash, err := crypto.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}

	return model.NewUserResponse(user), nil
}

func (s *AuthService) issueToken(user *model.User, session *model.Session) (model.TokenResponse, error) {
	token, err := crypto.SignToken(user, session, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{
		TokenType:   "bearer",
		ExpiresIn:   int64(s.jwtExpiry.Seconds()),
		AccessToken: token,
	}, nil
}
