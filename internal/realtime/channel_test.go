package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekeeper/client/internal/metrics"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// wsServer is a websocket endpoint whose availability the test controls.
type wsServer struct {
	*httptest.Server
	accept atomic.Bool
	dials  atomic.Int32
	conns  chan *websocket.Conn
	frames chan []byte

	mu         sync.Mutex
	authHeader string
}

// funcSubscriber delivers raw payloads to fn.
type funcSubscriber struct {
	fn func(json.RawMessage)
}

func (s *funcSubscriber) Deliver(data json.RawMessage) { s.fn(data) }

func on(fn func(json.RawMessage)) Subscriber {
	return &funcSubscriber{fn: fn}
}

func newWSServer(t *testing.T, accept bool) *wsServer {
	t.Helper()
	s := &wsServer{
		conns:  make(chan *websocket.Conn, 16),
		frames: make(chan []byte, 16),
	}
	s.accept.Store(accept)
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.dials.Add(1)
		s.mu.Lock()
		s.authHeader = r.Header.Get("Authorization")
		s.mu.Unlock()
		if !s.accept.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case s.frames <- data:
			default:
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("no connection accepted")
		return nil
	}
}

func signedInStore(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(session.NewMemoryStorage(), nil)
	require.NoError(t, store.SetSession(context.Background(), session.Session{
		Token: "tok-1", Role: session.RoleEmployee, DisplayName: "ayse", SubjectID: "3",
	}))
	return store
}

func newTestChannel(t *testing.T, srv *wsServer, store *session.Store, opts ...Option) *Channel {
	t.Helper()
	opts = append([]Option{WithReconnect(10*time.Millisecond, 5)}, opts...)
	c := New(srv.wsURL(), store, opts...)
	t.Cleanup(c.Disconnect)
	return c
}

func waitState(t *testing.T, c *Channel, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, waitFor, tick,
		"channel never reached %s, last state %s", want, c.State())
}

func TestExhaustedAfterMaxFailedOpens(t *testing.T) {
	srv := newWSServer(t, false)

	var mu sync.Mutex
	var seen []State
	c := newTestChannel(t, srv, signedInStore(t), WithStateHook(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	c.Connect()
	waitState(t, c, Exhausted)
	assert.EqualValues(t, 5, srv.dials.Load())
	assert.Equal(t, 5, c.Attempts())

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 5, srv.dials.Load(), "no automatic reconnect after exhaustion")
	assert.Equal(t, Exhausted, c.State())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, Connecting, seen[0])
	assert.Equal(t, Exhausted, seen[len(seen)-1])
	assert.Contains(t, seen, Reconnecting)
}

func TestManualConnectAfterExhaustion(t *testing.T) {
	srv := newWSServer(t, false)
	c := newTestChannel(t, srv, signedInStore(t))

	c.Connect()
	waitState(t, c, Exhausted)

	// A second cycle gets a full budget of attempts again.
	c.Connect()
	require.Eventually(t, func() bool { return srv.dials.Load() == 10 }, waitFor, tick)
	waitState(t, c, Exhausted)

	srv.accept.Store(true)
	c.Connect()
	waitState(t, c, Open)
	assert.Equal(t, 0, c.Attempts())
}

func TestSuccessfulOpenResetsAttempts(t *testing.T) {
	srv := newWSServer(t, false)
	c := newTestChannel(t, srv, signedInStore(t), WithReconnect(30*time.Millisecond, 5))

	c.Connect()
	require.Eventually(t, func() bool { return srv.dials.Load() >= 2 }, waitFor, tick)
	srv.accept.Store(true)

	waitState(t, c, Open)
	assert.Equal(t, 0, c.Attempts())
}

func TestReconnectAfterDrop(t *testing.T) {
	srv := newWSServer(t, true)
	c := newTestChannel(t, srv, signedInStore(t))

	c.Connect()
	conn := srv.nextConn(t)
	waitState(t, c, Open)

	conn.Close()
	srv.nextConn(t)
	waitState(t, c, Open)
	assert.EqualValues(t, 2, srv.dials.Load())
}

func TestDropWithoutSessionStopsReconnecting(t *testing.T) {
	srv := newWSServer(t, true)
	store := signedInStore(t)
	c := newTestChannel(t, srv, store)

	c.Connect()
	conn := srv.nextConn(t)
	waitState(t, c, Open)

	require.NoError(t, store.Clear(context.Background()))
	conn.Close()

	waitState(t, c, Disconnected)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, srv.dials.Load())
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	srv := newWSServer(t, false)
	c := newTestChannel(t, srv, signedInStore(t), WithReconnect(100*time.Millisecond, 5))

	c.Connect()
	waitState(t, c, Reconnecting)
	c.Disconnect()

	time.Sleep(250 * time.Millisecond)
	assert.EqualValues(t, 1, srv.dials.Load())
	assert.Equal(t, Disconnected, c.State())

	c.Disconnect()
	assert.Equal(t, Disconnected, c.State())
}

func TestDialSendsToken(t *testing.T) {
	srv := newWSServer(t, true)
	c := newTestChannel(t, srv, signedInStore(t))

	c.Connect()
	srv.nextConn(t)
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "Token tok-1", srv.authHeader)
}

func TestGroupJoinSentOnOpen(t *testing.T) {
	srv := newWSServer(t, true)
	stream := routes.AttendanceStream(session.RoleAuthorized)
	c := newTestChannel(t, srv, signedInStore(t), WithGroup(stream.Group))

	c.Connect()
	srv.nextConn(t)
	select {
	case frame := <-srv.frames:
		assert.JSONEq(t, `{"action":"join","group":"authorized_attendance"}`, string(frame))
	case <-time.After(waitFor):
		t.Fatal("no join frame")
	}
}

func TestAuthenticationRequiredRedirects(t *testing.T) {
	srv := newWSServer(t, true)
	store := signedInStore(t)

	dest := make(chan string, 1)
	var invoked atomic.Bool
	c := newTestChannel(t, srv, store, WithNavigator(routes.NavigatorFunc(func(d string) { dest <- d })))
	c.Subscribe(AuthenticationRequired, on(func(json.RawMessage) { invoked.Store(true) }))

	c.Connect()
	conn := srv.nextConn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"authentication_required"}`)))

	select {
	case d := <-dest:
		assert.Equal(t, routes.EmployeeLoginPage, d)
	case <-time.After(waitFor):
		t.Fatal("no navigation")
	}
	assert.False(t, invoked.Load())
	assert.Equal(t, Disconnected, c.State())
	assert.False(t, store.IsAuthenticated(context.Background()))
}

func TestEventDeliveredWithAlert(t *testing.T) {
	srv := newWSServer(t, true)

	type alert struct {
		level Level
		msg   string
	}
	alerts := make(chan alert, 1)
	got := make(chan json.RawMessage, 1)

	c := newTestChannel(t, srv, signedInStore(t), WithAlerter(AlerterFunc(func(l Level, m string) {
		alerts <- alert{l, m}
	})))
	c.Subscribe(TypeLeaveRequestApproved, on(func(data json.RawMessage) { got <- data }))

	c.Connect()
	conn := srv.nextConn(t)
	frame := `{"type":"LEAVE_REQUEST_APPROVED","message":"ok","data":{"start_date":"2024-01-01","end_date":"2024-01-02"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

	select {
	case data := <-got:
		assert.JSONEq(t, `{"start_date":"2024-01-01","end_date":"2024-01-02"}`, string(data))
	case <-time.After(waitFor):
		t.Fatal("subscriber not invoked")
	}
	select {
	case a := <-alerts:
		assert.Equal(t, alert{LevelSuccess, "ok"}, a)
	case <-time.After(waitFor):
		t.Fatal("no alert")
	}
}

func TestNonStringMessageStillDelivers(t *testing.T) {
	srv := newWSServer(t, true)
	alerted := make(chan string, 1)
	got := make(chan json.RawMessage, 1)

	c := newTestChannel(t, srv, signedInStore(t), WithAlerter(AlerterFunc(func(_ Level, m string) {
		alerted <- m
	})))
	c.Subscribe(TypeLeaveRequestApproved, on(func(data json.RawMessage) { got <- data }))

	c.Connect()
	conn := srv.nextConn(t)
	frame := `{"type":"LEAVE_REQUEST_APPROVED","message":{"text":"ok"},"data":{"id":"l1"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

	select {
	case data := <-got:
		assert.JSONEq(t, `{"id":"l1"}`, string(data))
	case <-time.After(waitFor):
		t.Fatal("subscriber not invoked")
	}
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"LEAVE_REQUEST_APPROVED","message":"second","data":{"id":"l2"}}`)))
	select {
	case m := <-alerted:
		assert.Equal(t, "second", m, "only string messages are alerted")
	case <-time.After(waitFor):
		t.Fatal("no alert")
	}
}

func TestEventMetricLabelsAreBounded(t *testing.T) {
	srv := newWSServer(t, true)
	m := metrics.New("tk")
	done := make(chan struct{})

	c := newTestChannel(t, srv, signedInStore(t), WithMetrics(m))
	c.Subscribe(TypeNoCheckIn, on(func(json.RawMessage) { close(done) }))

	c.Connect()
	conn := srv.nextConn(t)
	for _, frame := range []string{`{"type":"made_up_1"}`, `{"type":"made_up_2"}`, `{"type":"NO_CHECK_IN"}`} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("event not delivered")
	}

	counts := map[string]float64{}
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "tk_realtime_events_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			counts[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"unknown": 2, TypeNoCheckIn: 1}, counts)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	srv := newWSServer(t, true)
	got := make(chan json.RawMessage, 1)

	c := newTestChannel(t, srv, signedInStore(t))
	c.Subscribe("X", on(func(json.RawMessage) { panic("boom") }))
	c.Subscribe("X", on(func(data json.RawMessage) { got <- data }))

	c.Connect()
	conn := srv.nextConn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"X","data":{"n":1}}`)))

	select {
	case data := <-got:
		assert.JSONEq(t, `{"n":1}`, string(data))
	case <-time.After(waitFor):
		t.Fatal("second subscriber not invoked")
	}
	assert.Equal(t, Open, c.State())
}

func TestSubscribeIsIdempotent(t *testing.T) {
	srv := newWSServer(t, true)
	var count atomic.Int32
	done := make(chan struct{}, 4)

	c := newTestChannel(t, srv, signedInStore(t))
	sub := on(func(json.RawMessage) { count.Add(1); done <- struct{}{} })
	c.Subscribe(TypeCheckIn, sub)
	c.Subscribe(TypeCheckIn, sub)

	c.Connect()
	conn := srv.nextConn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CHECK_IN"}`)))
	<-done
	// A marker on another type proves the first frame was fully routed.
	marker := make(chan struct{})
	c.Subscribe("MARKER", on(func(json.RawMessage) { close(marker) }))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"MARKER"}`)))
	<-marker
	assert.EqualValues(t, 1, count.Load())

	c.Unsubscribe(TypeCheckIn, sub)
	c.Unsubscribe(TypeCheckIn, sub)
	c.Unsubscribe("never-registered", sub)
	assert.Empty(t, c.subscribers(TypeCheckIn))
}

func TestMalformedFrameIsSkipped(t *testing.T) {
	srv := newWSServer(t, true)
	got := make(chan struct{}, 1)

	c := newTestChannel(t, srv, signedInStore(t))
	c.Subscribe(TypeNoCheckIn, on(func(json.RawMessage) { got <- struct{}{} }))

	c.Connect()
	conn := srv.nextConn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"NO_CHECK_IN"}`)))

	select {
	case <-got:
	case <-time.After(waitFor):
		t.Fatal("event after malformed frame not delivered")
	}
	assert.Equal(t, Open, c.State())
}

func TestSendRequiresConnection(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws/", nil)
	assert.Error(t, c.Send(map[string]string{"message": "hi"}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "reconnecting", Reconnecting.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "state(9)", State(9).String())
}
