package mockserver

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/timekeeper/client/internal/session"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrRevokedToken     = errors.New("token has been revoked")
	ErrInvalidAlgorithm = errors.New("invalid signing algorithm")
)

// claims identify the user a token was issued to.
type claims struct {
	UserID     int64        `json:"user_id"`
	EmployeeID int64        `json:"employee_id,omitempty"`
	Username   string       `json:"username"`
	Role       session.Role `json:"role"`
	jwt.RegisteredClaims
}

// tokens mints and checks the opaque tokens handed out on login. Logout
// revokes a token by its ID.
type tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]struct{}
}

func newTokens(secret string, ttl time.Duration, now func() time.Time) *tokens {
	return &tokens{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     now,
		revoked: make(map[string]struct{}),
	}
}

func (t *tokens) issue(u *user) (string, error) {
	now := t.now()
	c := &claims{
		UserID:     u.ID,
		EmployeeID: u.EmployeeID,
		Username:   u.Username,
		Role:       u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *tokens) verify(raw string) (*claims, error) {
	token, err := jwt.ParseWithClaims(raw, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAlgorithm
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	t.mu.Lock()
	_, revoked := t.revoked[c.ID]
	t.mu.Unlock()
	if revoked {
		return nil, ErrRevokedToken
	}
	return c, nil
}

func (t *tokens) revoke(c *claims) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[c.ID] = struct{}{}
}
