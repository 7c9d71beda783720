// Package mockserver is an in-process attendance server implementing every
// endpoint and stream the client talks to. It backs local development and
// the end-to-end tests.
package mockserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/timekeeper/client/internal/logger"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

const (
	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"
)

// Options configures a Server. Zero values pick defaults.
type Options struct {
	// Secret signs issued tokens. A random secret is used when empty.
	Secret   string
	TokenTTL time.Duration
	// AuthorizedKey must be presented to register an authorized account.
	AuthorizedKey string
	BcryptCost    int
	// WorkStart is the offset from midnight after which a first check-in
	// counts as late.
	WorkStart time.Duration
	Now       func() time.Time
	Logger    *zap.Logger
}

type Server struct {
	opts   Options
	dir    *directory
	tokens *tokens
	hub    *hub
	logger *zap.Logger
	mux    *http.ServeMux
}

func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = uuid.NewString() + uuid.NewString()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.WorkStart <= 0 {
		opts.WorkStart = 9 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := logger.OrNop(opts.Logger).Named("mockserver")

	s := &Server{
		opts:   opts,
		dir:    newDirectory(opts.BcryptCost, opts.WorkStart),
		tokens: newTokens(opts.Secret, opts.TokenTTL, opts.Now),
		hub:    newHub(l),
		logger: l,
		mux:    http.NewServeMux(),
	}
	s.mount()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// AddUser creates an account directly, bypassing registration.
func (s *Server) AddUser(username, email, password string, role session.Role) error {
	_, err := s.dir.addUser(username, email, password, role)
	return err
}

// ClientCount is the number of connected stream clients.
func (s *Server) ClientCount() int {
	return s.hub.count()
}

// Close disconnects every stream client.
func (s *Server) Close() {
	s.hub.closeAll()
}

func (s *Server) now() time.Time {
	return s.opts.Now()
}

func (s *Server) mount() {
	anyRole := session.RoleNone
	emp := session.RoleEmployee
	auth := session.RoleAuthorized

	s.mux.HandleFunc("POST "+routes.LoginEmployee+"{$}", s.handleLogin(emp))
	s.mux.HandleFunc("POST "+routes.LoginAuthorized+"{$}", s.handleLogin(auth))
	s.mux.HandleFunc("POST "+routes.RegisterEmployee+"{$}", s.handleRegister(emp))
	s.mux.HandleFunc("POST "+routes.RegisterAuthorized+"{$}", s.handleRegister(auth))
	s.mux.HandleFunc("POST "+routes.Logout+"{$}", s.authenticated(anyRole, s.handleLogout))

	s.mux.HandleFunc("GET "+routes.AttendanceStatus+"{$}", s.authenticated(emp, s.handleStatus))
	s.mux.HandleFunc("POST "+routes.AttendanceCheckIn+"{$}", s.authenticated(emp, s.handleCheckIn))
	s.mux.HandleFunc("POST "+routes.AttendanceCheckOut+"{$}", s.authenticated(emp, s.handleCheckOut))
	s.mux.HandleFunc("GET /api/v1/attendance/monthly-report/{year}/{month}/{$}", s.authenticated(auth, s.handleMonthlyReport))

	s.mux.HandleFunc("GET "+routes.LeaveEmployeeList+"{$}", s.authenticated(emp, s.handleMyLeaves))
	s.mux.HandleFunc("GET "+routes.LeaveAuthorizedList+"{$}", s.authenticated(auth, s.handleAllLeaves))
	s.mux.HandleFunc("POST "+routes.LeaveEmployeeCreate+"{$}", s.authenticated(emp, s.handleCreateLeave))
	s.mux.HandleFunc("POST "+routes.LeaveAuthorizedCreate+"{$}", s.authenticated(auth, s.handleCreateLeave))
	s.mux.HandleFunc("POST /api/v1/leave/cancel/{id}/{$}", s.authenticated(anyRole, s.handleCancelLeave))
	s.mux.HandleFunc("POST /api/v1/leave/{id}/{action}/{$}", s.authenticated(auth, s.handleLeaveAction))

	s.mux.HandleFunc("GET "+routes.RemainingLeave+"{$}", s.authenticated(emp, s.handleRemainingLeave))
	s.mux.HandleFunc("GET "+routes.EmployeeOverview+"{$}", s.authenticated(auth, s.handleOverview))
	s.mux.HandleFunc("GET "+routes.EmployeeList+"{$}", s.authenticated(auth, s.handleEmployeeList))
	s.mux.HandleFunc("POST "+routes.UpdateLeaveBalance+"{$}", s.authenticated(auth, s.handleUpdateBalance))

	s.routeStreams()
}

type authedHandler func(w http.ResponseWriter, r *http.Request, c *claims)

// authenticated resolves the caller's token, enforces role (RoleNone admits
// any signed-in user) and checks the anti-forgery token on writes.
func (s *Server) authenticated(role session.Role, h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		c, err := s.tokens.verify(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		if role != session.RoleNone && c.Role != role {
			writeError(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		if r.Method != http.MethodGet && !csrfOK(r) {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed: CSRF token missing or incorrect."})
			return
		}
		h(w, r, c)
	}
}

// bearer extracts the token from "Authorization: Token <t>", falling back to
// the token query parameter for stream connections.
func bearer(r *http.Request) string {
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Token "); ok {
		return strings.TrimSpace(v)
	}
	return r.URL.Query().Get("token")
}

// csrfOK accepts requests without the cookie, and requests whose header
// echoes it.
func csrfOK(r *http.Request) bool {
	cookie, err := r.Cookie(csrfCookie)
	if err != nil {
		return true
	}
	return r.Header.Get(csrfHeader) == cookie.Value
}

func (s *Server) handleLogin(role session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		u, err := s.dir.authenticate(body.Username, body.Password)
		if err != nil {
			s.logger.Info("login rejected", zap.String("username", body.Username))
			s.fail(w, err)
			return
		}
		if u.Role != role {
			writeError(w, http.StatusBadRequest, "Invalid user type")
			return
		}
		s.signedIn(w, u)
	}
}

func (s *Server) handleRegister(role session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Key      string `json:"key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}

		missing := map[string][]string{}
		for field, v := range map[string]string{"username": body.Username, "email": body.Email, "password": body.Password} {
			if v == "" {
				missing[field] = []string{"This field is required."}
			}
		}
		if len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, missing)
			return
		}
		if role == session.RoleAuthorized && (s.opts.AuthorizedKey == "" || body.Key != s.opts.AuthorizedKey) {
			writeError(w, http.StatusBadRequest, "Invalid authorized key.")
			return
		}

		u, err := s.dir.addUser(body.Username, body.Email, body.Password, role)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.logger.Info("user registered", zap.String("username", u.Username), zap.String("role", string(role)))
		s.signedIn(w, u)
	}
}

// signedIn answers a successful login or registration: a token, the
// dashboard to land on and, for employees, their employee id.
func (s *Server) signedIn(w http.ResponseWriter, u *user) {
	token, err := s.tokens.issue(u)
	if err != nil {
		s.logger.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: uuid.NewString(), Path: "/"})

	resp := map[string]any{
		"message":  titleRole(u.Role) + " login successful",
		"token":    token,
		"username": u.Username,
		"redirect": routes.Dashboard(u.Role),
	}
	if u.Role == session.RoleEmployee {
		resp["employee_id"] = u.EmployeeID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request, c *claims) {
	s.tokens.revoke(c)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out."})
}

// fail renders err, mapping directory rejections onto their status.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		writeError(w, ae.status, ae.msg)
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func titleRole(r session.Role) string {
	if r == session.RoleAuthorized {
		return "Authorized"
	}
	return "Employee"
}
