// Package gateway is the single path for HTTP exchanges with the attendance
// server. It attaches credentials, classifies every response into a payload
// or a *Failure, and tears the session down on 401.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/logger"
	"github.com/timekeeper/client/internal/metrics"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

const (
	// CSRFCookie is read from the server origin's cookies and echoed back in
	// CSRFHeader.
	CSRFCookie = "csrftoken"
	CSRFHeader = "X-CSRFToken"

	maxBodyBytes = 10 << 20
)

// Options shapes one exchange.
type Options struct {
	Method string
	Header http.Header
	// Body is sent as JSON. []byte and json.RawMessage are sent verbatim.
	Body any
}

// Halter is anything that must stop when the session is lost, typically a
// realtime channel.
type Halter interface {
	Disconnect()
}

type Gateway struct {
	baseURL *url.URL
	// prefix is the base URL's path, prepended to absolute request paths.
	prefix    string
	client    *http.Client
	store     *session.Store
	navigator routes.Navigator
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu      sync.Mutex
	halters []Halter
}

type Option func(*Gateway)

// WithHTTPClient replaces the default client. A client without a cookie jar
// gets one, since the anti-forgery token lives in a cookie.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

func WithNavigator(n routes.Navigator) Option {
	return func(g *Gateway) { g.navigator = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.client.Timeout = d }
}

func New(baseURL string, store *session.Store, opts ...Option) (*Gateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	g := &Gateway{
		baseURL:   u,
		prefix:    strings.TrimSuffix(u.EscapedPath(), "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		store:     store,
		navigator: routes.Discard,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client.Jar == nil {
		jar, _ := cookiejar.New(nil)
		g.client.Jar = jar
	}
	g.logger = logger.OrNop(g.logger).Named("gateway")
	return g, nil
}

// AddHalter registers h to be stopped when a 401 invalidates the session.
func (g *Gateway) AddHalter(h Halter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.halters = append(g.halters, h)
}

// Jar exposes the cookie jar so the realtime dialer presents the same cookies.
func (g *Gateway) Jar() http.CookieJar {
	return g.client.Jar
}

func (g *Gateway) BaseURL() *url.URL {
	u := *g.baseURL
	return &u
}

// Request performs one authenticated exchange against path.
//
// On 401 the session is cleared, every registered Halter is stopped and the
// navigator is sent to the login page for roleHint (or the stored role when
// roleHint is RoleNone), all before the Unauthorized failure is returned.
func (g *Gateway) Request(ctx context.Context, path string, opts Options, roleHint session.Role) (json.RawMessage, error) {
	if roleHint == session.RoleNone {
		roleHint = g.store.Role(ctx)
	}

	payload, err := g.exchange(ctx, path, opts, true)
	if IsUnauthorized(err) {
		g.invalidate(ctx, roleHint)
	}
	g.metrics.RequestDone(outcome(err))
	return payload, err
}

// Anonymous performs an exchange without credentials, for login and
// registration. A 401 here means rejected credentials, not a lost session, so
// it is reported as an application failure and nothing is torn down.
func (g *Gateway) Anonymous(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	payload, err := g.exchange(ctx, path, opts, false)
	if f, ok := err.(*Failure); ok && f.Kind == KindUnauthorized {
		f.Kind = KindApplication
		if f.Message == "Unauthorized" {
			f.Message = "Invalid credentials"
		}
	}
	g.metrics.RequestDone(outcome(err))
	return payload, err
}

func (g *Gateway) exchange(ctx context.Context, path string, opts Options, withToken bool) (json.RawMessage, error) {
	req, err := g.newRequest(ctx, path, opts, withToken)
	if err != nil {
		return nil, err
	}

	log := g.logger.With(
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get("X-Request-ID")))

	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn("exchange failed", zap.Error(err))
		return nil, &Failure{Kind: KindNetwork, Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("reading response body failed", zap.Error(err))
		return nil, &Failure{Kind: KindNetwork, Status: resp.StatusCode, Message: "network error", Err: err}
	}

	payload, err := Classify(resp.StatusCode, statusText(resp), body)
	if err != nil {
		log.Info("exchange rejected",
			zap.Int("status", resp.StatusCode),
			zap.Stringer("kind", KindOf(err)),
			zap.String("message", err.Error()))
		return nil, err
	}
	log.Debug("exchange ok", zap.Int("status", resp.StatusCode))
	return payload, nil
}

func (g *Gateway) newRequest(ctx context.Context, path string, opts Options, withToken bool) (*http.Request, error) {
	if strings.HasPrefix(path, "/") {
		path = g.prefix + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	target := g.baseURL.ResolveReference(ref)

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := encodeBody(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if withToken {
		if token := g.store.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}
	if csrf := g.csrfToken(); csrf != "" {
		req.Header.Set(CSRFHeader, csrf)
	}
	return req, nil
}

// csrfToken looks up the anti-forgery cookie for the server origin.
func (g *Gateway) csrfToken() string {
	for _, c := range g.client.Jar.Cookies(g.baseURL) {
		if c.Name == CSRFCookie {
			return c.Value
		}
	}
	return ""
}

func (g *Gateway) invalidate(ctx context.Context, role session.Role) {
	ctx = context.WithoutCancel(ctx)
	if err := g.store.Clear(ctx); err != nil {
		g.logger.Error("clearing session after 401 failed", zap.Error(err))
	}

	g.mu.Lock()
	halters := append([]Halter(nil), g.halters...)
	g.mu.Unlock()
	for _, h := range halters {
		h.Disconnect()
	}

	dest := routes.LoginPage(role)
	g.logger.Warn("session invalidated", zap.String("role", string(role)), zap.String("redirect", dest))
	g.navigator.Navigate(dest)
}

func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(v)
	}
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}
