// Package session holds the client's credential state: the token, role and
// identity of the signed-in user. All reads and writes go straight to a
// durable Storage so that separate processes sharing the same storage see the
// same session.
package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/logger"
)

// Role identifies which side of the application the user signed in to.
type Role string

const (
	RoleNone       Role = ""
	RoleEmployee   Role = "employee"
	RoleAuthorized Role = "authorized"
)

// ParseRole maps a stored user_type value onto a Role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleEmployee, RoleAuthorized:
		return Role(s)
	default:
		return RoleNone
	}
}

// Storage keys. They match the keys used by the web client so a session
// exported from one can be read by the other.
const (
	KeyToken      = "token"
	KeyAuthToken  = "auth_token"
	KeyRole       = "user_type"
	KeyUsername   = "username"
	KeyEmployeeID = "employee_id"
	KeyTheme      = "theme"
)

// sessionKeys are removed together on Clear. The theme preference survives.
var sessionKeys = []string{KeyToken, KeyAuthToken, KeyRole, KeyUsername, KeyEmployeeID}

// Session is a snapshot of the stored identity.
type Session struct {
	Token       string
	Role        Role
	DisplayName string
	SubjectID   string
}

// Authenticated reports whether the snapshot carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store is the single owner of session state.
type Store struct {
	storage Storage
	logger  *zap.Logger
}

func NewStore(storage Storage, l *zap.Logger) *Store {
	return &Store{storage: storage, logger: logger.OrNop(l).Named("session")}
}

// SetSession persists s. An empty token is logged and ignored: writing the
// other fields without it would make an anonymous user look signed in.
func (s *Store) SetSession(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		s.logger.Warn("refusing to store a session without a token")
		return nil
	}

	values := map[string]string{
		KeyToken:     sess.Token,
		KeyAuthToken: sess.Token,
		KeyRole:      string(sess.Role),
		KeyUsername:  sess.DisplayName,
	}
	for k, v := range values {
		if err := s.storage.Set(ctx, k, v); err != nil {
			return err
		}
	}
	if sess.SubjectID != "" {
		if err := s.storage.Set(ctx, KeyEmployeeID, sess.SubjectID); err != nil {
			return err
		}
	} else if err := s.storage.Delete(ctx, KeyEmployeeID); err != nil {
		return err
	}

	s.logger.Info("session stored",
		zap.String("role", string(sess.Role)),
		zap.String("user", sess.DisplayName))
	return nil
}

func (s *Store) Token(ctx context.Context) string {
	return s.get(ctx, KeyToken)
}

// Role returns RoleNone whenever no token is stored, so the role never
// outlives the credential.
func (s *Store) Role(ctx context.Context) Role {
	if s.Token(ctx) == "" {
		return RoleNone
	}
	return ParseRole(s.get(ctx, KeyRole))
}

func (s *Store) DisplayName(ctx context.Context) string {
	return s.get(ctx, KeyUsername)
}

func (s *Store) SubjectID(ctx context.Context) string {
	return s.get(ctx, KeyEmployeeID)
}

// Session reads every field fresh from storage.
func (s *Store) Session(ctx context.Context) Session {
	sess := Session{Token: s.Token(ctx)}
	if sess.Token == "" {
		return sess
	}
	sess.Role = ParseRole(s.get(ctx, KeyRole))
	sess.DisplayName = s.DisplayName(ctx)
	sess.SubjectID = s.SubjectID(ctx)
	return sess
}

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// Clear removes every session field. It is safe to call repeatedly.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, sessionKeys...); err != nil {
		s.logger.Error("failed to clear session", zap.Error(err))
		return err
	}
	s.logger.Info("session cleared")
	return nil
}

// Theme returns the stored theme preference, defaulting to "light".
func (s *Store) Theme(ctx context.Context) string {
	if t := s.get(ctx, KeyTheme); t != "" {
		return t
	}
	return "light"
}

func (s *Store) SetTheme(ctx context.Context, theme string) error {
	return s.storage.Set(ctx, KeyTheme, theme)
}

func (s *Store) get(ctx context.Context, key string) string {
	v, _, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Error("session read failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return v
}
