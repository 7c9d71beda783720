package mockserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/timekeeper/client/internal/realtime"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	srv   *Server
	ts    *httptest.Server
	clock *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: at(9, 30)}
	srv := New(Options{
		Secret:        "test-secret",
		AuthorizedKey: "letmein",
		BcryptCost:    bcrypt.MinCost,
		Now:           clk.Now,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	require.NoError(t, srv.AddUser("alice", "alice@example.com", "pw-alice", session.RoleEmployee))
	require.NoError(t, srv.AddUser("boss", "boss@example.com", "pw-boss", session.RoleAuthorized))
	return &fixture{srv: srv, ts: ts, clock: clk}
}

type reply struct {
	status int
	body   gjson.Result
	header http.Header
}

func (f *fixture) do(t *testing.T, method, path, token string, body any, cookies ...*http.Cookie) reply {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return reply{status: resp.StatusCode, body: gjson.ParseBytes(data), header: resp.Header}
}

func (f *fixture) login(t *testing.T, role session.Role, username, password string) string {
	t.Helper()
	path := routes.LoginEmployee
	if role == session.RoleAuthorized {
		path = routes.LoginAuthorized
	}
	r := f.do(t, http.MethodPost, path, "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, r.status, r.body.Raw)
	return r.body.Get("token").String()
}

func (f *fixture) dial(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	before := f.srv.ClientCount()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Token "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.ts.URL, "http")+path, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	if token != "" {
		require.Eventually(t, func() bool { return f.srv.ClientCount() > before }, time.Second, 5*time.Millisecond)
	}
	return conn
}

// readUntil reads events from conn until one of eventType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) realtime.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev realtime.Event
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", eventType)
		if ev.Type == eventType {
			return ev
		}
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	r := f.do(t, http.MethodPost, routes.LoginEmployee, "", map[string]string{"username": "alice", "password": "pw-alice"})
	require.Equal(t, http.StatusOK, r.status)
	assert.NotEmpty(t, r.body.Get("token").String())
	assert.Equal(t, "alice", r.body.Get("username").String())
	assert.Equal(t, int64(1), r.body.Get("employee_id").Int())
	assert.Equal(t, routes.EmployeeDashboard, r.body.Get("redirect").String())
	assert.Equal(t, "Employee login successful", r.body.Get("message").String())
	assert.Contains(t, r.header.Get("Set-Cookie"), csrfCookie+"=")

	r = f.do(t, http.MethodPost, routes.LoginAuthorized, "", map[string]string{"username": "boss", "password": "pw-boss"})
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, routes.AuthorizedDashboard, r.body.Get("redirect").String())
	assert.False(t, r.body.Get("employee_id").Exists())

	r = f.do(t, http.MethodPost, routes.LoginEmployee, "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "Invalid credentials", r.body.Get("error").String())

	r = f.do(t, http.MethodPost, routes.LoginAuthorized, "", map[string]string{"username": "alice", "password": "pw-alice"})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Invalid user type", r.body.Get("error").String())
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	r := f.do(t, http.MethodPost, routes.RegisterEmployee, "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusOK, r.status, r.body.Raw)
	assert.Equal(t, int64(2), r.body.Get("employee_id").Int())

	r = f.do(t, http.MethodPost, routes.RegisterEmployee, "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, errUserExists.msg, r.body.Get("error").String())

	r = f.do(t, http.MethodPost, routes.RegisterEmployee, "", map[string]string{"username": "dave"})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "This field is required.", r.body.Get("email.0").String())
	assert.Equal(t, "This field is required.", r.body.Get("password.0").String())

	r = f.do(t, http.MethodPost, routes.RegisterAuthorized, "", map[string]string{
		"username": "erin", "email": "erin@example.com", "password": "pw", "key": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = f.do(t, http.MethodPost, routes.RegisterAuthorized, "", map[string]string{
		"username": "erin", "email": "erin@example.com", "password": "pw", "key": "letmein",
	})
	assert.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, routes.AuthorizedDashboard, r.body.Get("redirect").String())
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")

	r := f.do(t, http.MethodGet, routes.AttendanceStatus, "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "Authentication credentials were not provided.", r.body.Get("detail").String())

	r = f.do(t, http.MethodGet, routes.AttendanceStatus, "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "Invalid token.", r.body.Get("detail").String())

	r = f.do(t, http.MethodGet, routes.EmployeeOverview, emp, nil)
	assert.Equal(t, http.StatusForbidden, r.status)

	r = f.do(t, http.MethodPost, routes.Logout, emp, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Successfully logged out.", r.body.Get("message").String())

	r = f.do(t, http.MethodGet, routes.AttendanceStatus, emp, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
}

func TestExpiredToken(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")

	f.clock.Set(at(9, 30).Add(25 * time.Hour))
	r := f.do(t, http.MethodGet, routes.AttendanceStatus, emp, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
}

func TestCSRF(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")
	cookie := &http.Cookie{Name: csrfCookie, Value: "abc"}

	r := f.do(t, http.MethodPost, routes.AttendanceCheckIn, emp, nil, cookie)
	assert.Equal(t, http.StatusForbidden, r.status)
	assert.Contains(t, r.body.Get("detail").String(), "CSRF")

	// reads are never checked
	r = f.do(t, http.MethodGet, routes.AttendanceStatus, emp, nil, cookie)
	assert.Equal(t, http.StatusOK, r.status)
}

func TestCSRFHeaderAccepted(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")

	req, err := http.NewRequest(http.MethodPost, f.ts.URL+routes.AttendanceCheckIn, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Token "+emp)
	req.Header.Set(csrfHeader, "abc")
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "abc"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAttendanceDay(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")
	boss := f.login(t, session.RoleAuthorized, "boss", "pw-boss")

	r := f.do(t, http.MethodGet, routes.AttendanceStatus, emp, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, StatusNotCheckedIn, r.body.Get("status").String())
	assert.Equal(t, 14.0, r.body.Get("remaining_leave").Float())

	r = f.do(t, http.MethodPost, routes.AttendanceCheckOut, emp, nil)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, errNotIn.msg, r.body.Get("error").String())

	r = f.do(t, http.MethodPost, routes.AttendanceCheckIn, emp, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, int64(30), r.body.Get("lateness").Int())
	assert.Equal(t, "09:30", r.body.Get("time").String())

	r = f.do(t, http.MethodPost, routes.AttendanceCheckIn, emp, nil)
	assert.Equal(t, http.StatusBadRequest, r.status)

	f.clock.Set(at(17, 30))
	r = f.do(t, http.MethodPost, routes.AttendanceCheckOut, emp, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, int64(480), r.body.Get("work_minutes").Int())
	assert.Equal(t, StatusCheckedOut, r.body.Get("status").String())

	r = f.do(t, http.MethodGet, routes.EmployeeOverview, boss, nil)
	require.Equal(t, http.StatusOK, r.status)
	row := r.body.Get("0")
	assert.Equal(t, "alice", row.Get("username").String())
	assert.Equal(t, "17:30", row.Get("last_action_time").String())
	assert.Equal(t, "0h 30m", row.Get("lateness").String())
	assert.Equal(t, "8h 0m", row.Get("work_duration").String())

	r = f.do(t, http.MethodGet, routes.MonthlyReport(2026, 3), boss, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, int64(1), r.body.Get("employees.0.days_present").Int())
	assert.Equal(t, int64(30), r.body.Get("employees.0.lateness_minutes").Int())
	assert.Equal(t, int64(480), r.body.Get("employees.0.work_minutes").Int())

	r = f.do(t, http.MethodGet, routes.MonthlyReport(2026, 13), boss, nil)
	assert.Equal(t, http.StatusBadRequest, r.status)

	// a new day starts clean
	f.clock.Set(at(9, 0).Add(24 * time.Hour))
	r = f.do(t, http.MethodGet, routes.AttendanceStatus, emp, nil)
	assert.Equal(t, StatusNotCheckedIn, r.body.Get("status").String())
}

func TestLeaveLifecycle(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")
	boss := f.login(t, session.RoleAuthorized, "boss", "pw-boss")
	own := f.dial(t, routes.StreamNotifications, emp)
	board := f.dial(t, routes.StreamAuthorizedNotifications, boss)

	r := f.do(t, http.MethodPost, routes.LeaveEmployeeCreate, emp, map[string]string{
		"start_date": "2026-03-10", "end_date": "2026-03-12", "reason": "holiday",
	})
	require.Equal(t, http.StatusCreated, r.status, r.body.Raw)
	id := r.body.Get("id").String()
	assert.Equal(t, LeavePending, r.body.Get("status").String())
	ev := readUntil(t, board, realtime.TypeLeaveRequest)
	assert.Equal(t, "alice", gjson.GetBytes(ev.Data, "employee").String())

	r = f.do(t, http.MethodPost, routes.LeaveEmployeeCreate, emp, map[string]string{
		"start_date": "2026-03-11", "end_date": "2026-03-11",
	})
	assert.Equal(t, http.StatusConflict, r.status)
	readUntil(t, own, realtime.TypeLeaveRequestConflict)

	r = f.do(t, http.MethodPost, routes.LeaveAction(id, "approve"), boss, nil)
	require.Equal(t, http.StatusOK, r.status, r.body.Raw)
	assert.Equal(t, LeaveApproved, r.body.Get("leave.status").String())

	ev = readUntil(t, own, realtime.TypeLeaveRequestApproved)
	assert.Equal(t, id, gjson.GetBytes(ev.Data, "id").String())
	ev = readUntil(t, own, realtime.TypeLeaveBalanceUpdated)
	assert.Equal(t, 11.0, gjson.GetBytes(ev.Data, "remaining_leave").Float())

	r = f.do(t, http.MethodPost, routes.LeaveAction(id, "reject"), boss, nil)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, errNotPending.msg, r.body.Get("error").String())

	r = f.do(t, http.MethodGet, routes.LeaveEmployeeList, emp, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Len(t, r.body.Array(), 1)

	r = f.do(t, http.MethodGet, routes.RemainingLeave, emp, nil)
	assert.Equal(t, 11.0, r.body.Get("remaining_leave").Float())
	assert.Equal(t, "11d 0h 0m", r.body.Get("remaining_leave_display").String())

	f.clock.Set(time.Date(2026, time.March, 11, 9, 30, 0, 0, time.UTC))
	emp = f.login(t, session.RoleEmployee, "alice", "pw-alice")
	r = f.do(t, http.MethodGet, routes.AttendanceStatus, emp, nil)
	assert.Equal(t, StatusOnLeave, r.body.Get("status").String())
}

func TestLeaveRejections(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")
	boss := f.login(t, session.RoleAuthorized, "boss", "pw-boss")
	own := f.dial(t, routes.StreamNotifications, emp)

	tests := []struct {
		name       string
		start, end string
		status     int
		msg        string
	}{
		{"bad date", "03/10/2026", "2026-03-12", http.StatusBadRequest, errInvalidDate.msg},
		{"reversed", "2026-03-12", "2026-03-10", http.StatusBadRequest, errDateOrder.msg},
		{"today", "2026-03-02", "2026-03-03", http.StatusBadRequest, errStartTooEarly.msg},
		{"too long", "2026-04-01", "2026-04-30", http.StatusBadRequest, errInsufficient.msg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.do(t, http.MethodPost, routes.LeaveEmployeeCreate, emp, map[string]string{
				"start_date": tt.start, "end_date": tt.end,
			})
			assert.Equal(t, tt.status, r.status)
			assert.Equal(t, tt.msg, r.body.Get("error").String())
		})
	}
	readUntil(t, own, realtime.TypeLeaveRequestInsufficient)

	r := f.do(t, http.MethodPost, routes.LeaveAuthorizedCreate, boss, map[string]string{
		"start_date": "2026-03-10", "end_date": "2026-03-10",
	})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "This field is required.", r.body.Get("employee.0").String())

	r = f.do(t, http.MethodPost, routes.LeaveAction("missing", "approve"), boss, nil)
	assert.Equal(t, http.StatusNotFound, r.status)

	r = f.do(t, http.MethodPost, routes.LeaveAction("missing", "archive"), boss, nil)
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestCancelLeave(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.srv.AddUser("bob", "bob@example.com", "pw-bob", session.RoleEmployee))
	alice := f.login(t, session.RoleEmployee, "alice", "pw-alice")
	bob := f.login(t, session.RoleEmployee, "bob", "pw-bob")
	boss := f.login(t, session.RoleAuthorized, "boss", "pw-boss")
	board := f.dial(t, routes.StreamAuthorizedNotifications, boss)

	r := f.do(t, http.MethodPost, routes.LeaveAuthorizedCreate, boss, map[string]any{
		"employee": 1, "start_date": "2026-03-10", "end_date": "2026-03-10",
	})
	require.Equal(t, http.StatusCreated, r.status, r.body.Raw)
	id := r.body.Get("id").String()

	r = f.do(t, http.MethodPost, routes.LeaveCancel(id), bob, nil)
	assert.Equal(t, http.StatusForbidden, r.status)
	assert.Equal(t, errNotOwner.msg, r.body.Get("error").String())

	r = f.do(t, http.MethodPost, routes.LeaveCancel(id), alice, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, LeaveCancelled, r.body.Get("leave.status").String())
	readUntil(t, board, realtime.TypeLeaveRequestCancelled)

	r = f.do(t, http.MethodGet, routes.LeaveAuthorizedList, boss, nil)
	assert.Equal(t, LeaveCancelled, r.body.Get("0.status").String())
}

func TestUpdateLeaveBalance(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")
	boss := f.login(t, session.RoleAuthorized, "boss", "pw-boss")
	own := f.dial(t, routes.StreamNotifications, emp)
	board := f.dial(t, routes.StreamAuthorizedNotifications, boss)

	r := f.do(t, http.MethodPost, routes.UpdateLeaveBalance, boss, map[string]any{"employee_id": 1, "change": -12})
	require.Equal(t, http.StatusOK, r.status, r.body.Raw)
	assert.Equal(t, 2.0, r.body.Get("remaining_leave").Float())

	readUntil(t, own, realtime.TypeLeaveBalanceUpdated)
	ev := readUntil(t, board, realtime.TypeLowLeaveBalance)
	assert.Equal(t, "alice", gjson.GetBytes(ev.Data, "employee").String())

	r = f.do(t, http.MethodPost, routes.UpdateLeaveBalance, boss, map[string]any{"employee_id": 1, "change": -5})
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, errInvalidBalance.msg, r.body.Get("error").String())

	r = f.do(t, http.MethodPost, routes.UpdateLeaveBalance, boss, map[string]any{"employee_id": "x", "change": 1})
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = f.do(t, http.MethodGet, routes.EmployeeList, boss, nil)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "alice", r.body.Get("0.username").String())
}

func TestStreamWithoutTokenRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, routes.StreamNotifications, "")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.AuthenticationRequired, ev.Type)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	assert.Zero(t, f.srv.ClientCount())
}

func TestStreamRoleMismatchRefused(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")

	header := http.Header{"Authorization": {"Token " + emp}}
	_, resp, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(f.ts.URL, "http")+routes.StreamAuthorizedNotifications, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStreamQueryToken(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")

	conn, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(f.ts.URL, "http")+routes.StreamNotifications+"?token="+emp, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.srv.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCheckInEvents(t *testing.T) {
	f := newFixture(t)
	emp := f.login(t, session.RoleEmployee, "alice", "pw-alice")
	boss := f.login(t, session.RoleAuthorized, "boss", "pw-boss")
	own := f.dial(t, routes.StreamNotifications, emp)
	board := f.dial(t, routes.StreamAuthorizedNotifications, boss)
	attendance := f.dial(t, routes.StreamAuthorizedAttendance, boss)
	mine := f.dial(t, routes.StreamEmployeeAttendance, emp)

	require.NoError(t, attendance.WriteJSON(map[string]string{"action": "join", "group": authorizedAttendanceGroup}))
	require.Eventually(t, func() bool {
		f.srv.hub.mu.RLock()
		defer f.srv.hub.mu.RUnlock()
		for c := range f.srv.hub.clients {
			if c.groups[authorizedAttendanceGroup] {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	r := f.do(t, http.MethodPost, routes.AttendanceCheckIn, emp, nil)
	require.Equal(t, http.StatusOK, r.status)

	ev := readUntil(t, own, realtime.TypeCheckIn)
	assert.Equal(t, "Checked in at 09:30", ev.Text())

	readUntil(t, board, realtime.TypeEmployeeCheckIn)
	ev = readUntil(t, board, realtime.TypeEmployeeLate)
	assert.Equal(t, int64(30), gjson.GetBytes(ev.Data, "minutes").Int())

	ev = readUntil(t, attendance, realtime.TypeAttendanceUpdate)
	assert.Equal(t, StatusCheckedIn, gjson.GetBytes(ev.Data, "status").String())
	readUntil(t, mine, realtime.TypeEmployeeAttendanceUpdate)

	f.clock.Set(at(12, 0))
	r = f.do(t, http.MethodPost, routes.AttendanceCheckOut, emp, nil)
	require.Equal(t, http.StatusOK, r.status)
	ev = readUntil(t, own, realtime.TypeDailyWorkSummary)
	assert.Equal(t, int64(150), gjson.GetBytes(ev.Data, "work_minutes").Int())
	readUntil(t, board, realtime.TypeEmployeeCheckOut)
}

func TestLeaveDisplay(t *testing.T) {
	assert.Equal(t, "14d 0h 0m", leaveDisplay(14))
	assert.Equal(t, "2d 12h 0m", leaveDisplay(2.5))
	assert.Equal(t, "0d 0h 0m", leaveDisplay(0))
}
