package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/timekeeper/client/internal/gateway"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

// Credentials sign an existing user in.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration creates a user. Key is the shared secret required for
// authorized accounts.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Key      string `json:"key,omitempty"`
}

// SignIn is what a successful login or registration leaves behind.
type SignIn struct {
	Session  session.Session
	Message  string
	Redirect string
}

const logoutFailed = "Logout failed. Please try again."

// Login authenticates as role and persists the resulting session. Rejected
// credentials come back as an application failure carrying the server's
// message; the stored session is left untouched.
func (c *Client) Login(ctx context.Context, role session.Role, creds Credentials) (*SignIn, error) {
	path := routes.LoginEmployee
	if role == session.RoleAuthorized {
		path = routes.LoginAuthorized
	}
	return c.signIn(ctx, role, path, creds)
}

// Register creates an account as role and signs it in.
func (c *Client) Register(ctx context.Context, role session.Role, reg Registration) (*SignIn, error) {
	path := routes.RegisterEmployee
	if role == session.RoleAuthorized {
		path = routes.RegisterAuthorized
	}
	return c.signIn(ctx, role, path, reg)
}

func (c *Client) signIn(ctx context.Context, role session.Role, path string, body any) (*SignIn, error) {
	payload, err := c.req.Anonymous(ctx, path, gateway.Options{Method: http.MethodPost, Body: body})
	if err != nil {
		return nil, err
	}

	sess, err := sessionFrom(payload, role)
	if err != nil {
		return nil, err
	}
	if err := c.store.SetSession(ctx, sess); err != nil {
		return nil, err
	}

	redirect := gjson.GetBytes(payload, "redirect").String()
	if redirect == "" {
		redirect = routes.Dashboard(role)
	}
	return &SignIn{
		Session:  sess,
		Message:  gjson.GetBytes(payload, "message").String(),
		Redirect: redirect,
	}, nil
}

// sessionFrom reads {token, username, employee_id} from a login response.
// employee_id may be a number, a string or null.
func sessionFrom(payload json.RawMessage, role session.Role) (session.Session, error) {
	doc := gjson.ParseBytes(payload)
	token := doc.Get("token").String()
	if token == "" {
		return session.Session{}, &gateway.Failure{
			Kind:    gateway.KindProtocol,
			Status:  http.StatusOK,
			Message: "The server did not return a token",
		}
	}
	sess := session.Session{
		Token:       token,
		Role:        role,
		DisplayName: doc.Get("username").String(),
	}
	if id := doc.Get("employee_id"); id.Exists() && id.Type != gjson.Null {
		sess.SubjectID = id.String()
	}
	return sess, nil
}

// Logout ends the session on the server. Only on success is the local
// session cleared, the realtime channels stopped and the UI sent home.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, routes.Logout, nil)
	if err != nil {
		// On 401 the gateway already tore the session down.
		if gateway.IsUnauthorized(err) {
			return err
		}
		failure := &gateway.Failure{Kind: gateway.KindApplication, Message: logoutFailed, Err: err}
		var f *gateway.Failure
		if errors.As(err, &f) {
			failure.Status = f.Status
		}
		return failure
	}

	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	for _, h := range c.halters {
		h.Disconnect()
	}
	c.navigator.Navigate(routes.Home)
	return nil
}
