// Package realtime keeps one live websocket connection to the attendance
// server, reconnects it a bounded number of times after drops, and fans
// inbound events out to subscribers by event type.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/config"
	"github.com/timekeeper/client/internal/logger"
	"github.com/timekeeper/client/internal/metrics"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

const (
	defaultReconnectInterval = 5 * time.Second
	defaultMaxAttempts       = 5
	writeTimeout             = 10 * time.Second
	handshakeTimeout         = 10 * time.Second
)

type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Reconnecting
	Exhausted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel owns one connection to a realtime stream.
//
// The attempt counter counts consecutive failed opens or drops. It is reset
// by a successful open and by an explicit Connect. When it reaches the
// configured maximum the channel parks in Exhausted until Connect is called
// again.
type Channel struct {
	url               string
	group             string
	reconnectInterval time.Duration
	maxAttempts       int
	pingInterval      time.Duration
	pongTimeout       time.Duration

	dialer    *websocket.Dialer
	store     *session.Store
	navigator routes.Navigator
	alerter   Alerter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	onState   func(State)

	mu       sync.Mutex
	state    State
	attempts int
	gen      uint64 // bumped by Connect and Disconnect; stale callbacks compare against it
	conn     *websocket.Conn
	timer    *time.Timer
	cancel   context.CancelFunc

	writeMu sync.Mutex

	subMu sync.RWMutex
	subs  map[string]map[Subscriber]struct{}
}

type Option func(*Channel)

// WithGroup makes the channel send a join frame for group right after every
// successful open.
func WithGroup(group string) Option {
	return func(c *Channel) { c.group = group }
}

func WithReconnect(interval time.Duration, maxAttempts int) Option {
	return func(c *Channel) {
		if interval > 0 {
			c.reconnectInterval = interval
		}
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
	}
}

// WithKeepalive enables the ping loop. A zero pongTimeout disables the read
// deadline.
func WithKeepalive(pingInterval, pongTimeout time.Duration) Option {
	return func(c *Channel) {
		c.pingInterval = pingInterval
		c.pongTimeout = pongTimeout
	}
}

// WithConfig applies the realtime section of the client configuration.
func WithConfig(cfg config.RealtimeConfig) Option {
	return func(c *Channel) {
		WithReconnect(cfg.ReconnectInterval, cfg.MaxReconnectAttempts)(c)
		WithKeepalive(cfg.PingInterval, cfg.PongTimeout)(c)
	}
}

// WithJar shares cookies with the HTTP gateway.
func WithJar(jar http.CookieJar) Option {
	return func(c *Channel) { c.dialer.Jar = jar }
}

func WithNavigator(n routes.Navigator) Option {
	return func(c *Channel) { c.navigator = n }
}

func WithAlerter(a Alerter) Option {
	return func(c *Channel) { c.alerter = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// WithStateHook is called after every state change, outside the channel's
// lock, from whichever goroutine caused it.
func WithStateHook(fn func(State)) Option {
	return func(c *Channel) { c.onState = fn }
}

// New creates a disconnected channel for the websocket at url. store decides
// whether a dropped connection is worth reconnecting and supplies the token.
func New(url string, store *session.Store, opts ...Option) *Channel {
	c := &Channel{
		url:               url,
		reconnectInterval: defaultReconnectInterval,
		maxAttempts:       defaultMaxAttempts,
		dialer:            &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		store:             store,
		navigator:         routes.Discard,
		subs:              make(map[string]map[Subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNop(c.logger).Named("realtime").With(zap.String("url", url))
	return c
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts is the current consecutive failure count.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect starts a fresh connection cycle from any state. Any live
// connection and pending reconnect are abandoned and the attempt counter is
// reset.
func (c *Channel) Connect() {
	c.mu.Lock()
	c.haltLocked()
	c.attempts = 0
	c.state = Connecting
	gen := c.gen
	c.mu.Unlock()

	c.changed(Connecting)
	go c.run(gen)
}

// Disconnect closes the connection, cancels any pending reconnect and parks
// the channel in Disconnected. It is safe to call repeatedly.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.haltLocked()
	prev := c.state
	c.state = Disconnected
	c.mu.Unlock()

	if prev != Disconnected {
		c.logger.Info("disconnected")
		c.changed(Disconnected)
	}
}

// haltLocked invalidates every goroutine and timer of the current cycle.
func (c *Channel) haltLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Send writes v as a JSON text frame on the live connection.
func (c *Channel) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.write(conn, v)
}

func (c *Channel) write(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func (c *Channel) run(gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.cancel = cancel
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.dropped(gen, err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.attempts = 0
	c.state = Open
	c.mu.Unlock()
	c.logger.Info("connected")
	c.changed(Open)

	if c.group != "" {
		join := map[string]string{"action": "join", "group": c.group}
		if err := c.write(conn, join); err != nil {
			conn.Close()
			c.dropped(gen, fmt.Errorf("join %s: %w", c.group, err))
			return
		}
	}

	if c.pingInterval > 0 {
		go c.pingLoop(ctx, conn)
	}
	err = c.readLoop(conn, gen)
	c.dropped(gen, err)
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.store != nil {
		if token := c.store.Token(ctx); token != "" {
			header.Set("Authorization", "Token "+token)
		}
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) error {
	if c.pongTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err), zap.ByteString("frame", data))
			continue
		}
		if !c.current(gen) {
			return nil
		}
		c.route(ev)
	}
}

// pingLoop sends periodic pings until ctx ends or a write fails.
func (c *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dropped handles a failed open or a lost connection for cycle gen.
func (c *Channel) dropped(gen uint64, cause error) {
	authenticated := c.store == nil || c.store.IsAuthenticated(context.Background())

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.cancel = nil

	var next State
	switch {
	case !authenticated:
		c.gen++
		next = Disconnected
	default:
		c.attempts++
		if c.attempts >= c.maxAttempts {
			next = Exhausted
		} else {
			next = Reconnecting
			c.timer = time.AfterFunc(c.reconnectInterval, func() { c.retry(gen) })
		}
	}
	c.state = next
	attempts := c.attempts
	c.mu.Unlock()

	switch next {
	case Disconnected:
		c.logger.Info("connection lost without a session, not reconnecting", zap.Error(cause))
	case Exhausted:
		c.logger.Warn("max reconnect attempts reached", zap.Int("attempts", attempts), zap.Error(cause))
	default:
		c.logger.Info("connection lost, reconnecting",
			zap.Int("attempt", attempts),
			zap.Duration("in", c.reconnectInterval),
			zap.Error(cause))
	}
	c.changed(next)
}

func (c *Channel) retry(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Reconnecting {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = Connecting
	c.mu.Unlock()

	c.changed(Connecting)
	c.run(gen)
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *Channel) changed(s State) {
	c.metrics.StateChanged(s.String())
	if c.onState != nil {
		c.onState(s)
	}
}

// route dispatches one inbound event.
func (c *Channel) route(ev Event) {
	c.metrics.EventReceived(metricType(ev.Type))

	if ev.Type == AuthenticationRequired {
		c.logger.Warn("server requires authentication")
		c.Disconnect()
		if c.store != nil {
			if err := c.store.Clear(context.Background()); err != nil {
				c.logger.Error("clearing session failed", zap.Error(err))
			}
		}
		c.navigator.Navigate(routes.LoginPage(session.RoleEmployee))
		return
	}

	for _, s := range c.subscribers(ev.Type) {
		c.deliver(ev, s)
	}
	if msg := ev.Text(); msg != "" && c.alerter != nil {
		c.alerter.Alert(LevelOf(ev.Type), msg)
	}
}

func (c *Channel) deliver(ev Event, s Subscriber) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("subscriber panicked", zap.String("type", ev.Type), zap.Any("panic", r))
		}
	}()
	s.Deliver(ev.Data)
}
