// Package api holds the domain facades: attendance, leave, employee and
// account calls expressed as fixed endpoint paths over the gateway.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/timekeeper/client/internal/gateway"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

// Requester is the subset of *gateway.Gateway the facades need.
type Requester interface {
	Request(ctx context.Context, path string, opts gateway.Options, roleHint session.Role) (json.RawMessage, error)
	Anonymous(ctx context.Context, path string, opts gateway.Options) (json.RawMessage, error)
}

// Client binds the facades to one gateway and credential store.
type Client struct {
	req       Requester
	store     *session.Store
	navigator routes.Navigator
	halters   []gateway.Halter
}

type Option func(*Client)

// WithNavigator sets where Logout sends the UI on success.
func WithNavigator(n routes.Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

// WithHalters registers what Logout stops, typically the realtime channels.
func WithHalters(h ...gateway.Halter) Option {
	return func(c *Client) { c.halters = append(c.halters, h...) }
}

func New(req Requester, store *session.Store, opts ...Option) *Client {
	c := &Client{req: req, store: store, navigator: routes.Discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.req.Request(ctx, path, gateway.Options{}, c.store.Role(ctx))
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.req.Request(ctx, path, gateway.Options{Method: http.MethodPost, Body: body}, c.store.Role(ctx))
}
