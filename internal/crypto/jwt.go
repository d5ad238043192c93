package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authgate/authgate-go/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenUser is the user snapshot embedded in a token. It never carries the
// password hash.
type TokenUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenSession is the session snapshot embedded in a token. It reflects the
// session row at issuance time and does not track later changes to the row.
type TokenSession struct {
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

// Claims represents the JWT claims for authgate tokens.
type Claims struct {
	jwt.RegisteredClaims
	User    TokenUser    `json:"user"`
	Session TokenSession `json:"session"`
}

// SignToken creates a signed JWT embedding snapshots of the user and the
// session it was issued against.
func SignToken(user *model.User, session *model.Session, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "authgate",
			Audience:  jwt.ClaimStrings{"authgate-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		User: TokenUser{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.UpdatedAt,
		},
		Session: TokenSession{
			ID:             session.ID,
			UUID:           session.UUID.String(),
			UserID:         session.UserID,
			IP:             session.IP,
			UserAgent:      session.UserAgent,
			CreatedAt:      session.CreatedAt,
			LastActivityAt: session.LastActivityAt,
			ExpiresAt:      session.ExpiresAt,
			ClosedAt:       session.ClosedAt,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a token string, returning the claims if
// valid. Verification never partially succeeds: any signature, structure, or
// expiry failure yields ErrInvalidToken.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithIssuer("authgate"), jwt.WithAudience("authgate-api"))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
