// Package routes holds the fixed server paths the client talks to and the
// UI destinations it navigates to.
package routes

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/timekeeper/client/internal/session"
)

// API endpoints.
const (
	LoginEmployee      = "/auth/api/login/employee/"
	LoginAuthorized    = "/auth/api/login/authorized/"
	RegisterEmployee   = "/auth/api/register/employee/"
	RegisterAuthorized = "/auth/api/register/authorized/"
	Logout             = "/auth/logout/"

	AttendanceStatus   = "/api/v1/attendance/status/"
	AttendanceCheckIn  = "/api/v1/attendance/check-in/"
	AttendanceCheckOut = "/api/v1/attendance/check-out/"

	LeaveEmployeeList     = "/api/v1/leave/employee/list/"
	LeaveAuthorizedList   = "/api/v1/leave/authorized/list/"
	LeaveEmployeeCreate   = "/api/v1/leave/employee/create/"
	LeaveAuthorizedCreate = "/api/v1/leave/authorized/create/"
	leaveActionPrefix     = "/api/v1/leave/"
	leaveCancelPrefix     = "/api/v1/leave/cancel/"

	RemainingLeave     = "/employee/api/remaining-leave/"
	EmployeeOverview   = "/employee/api/employees/overview/"
	EmployeeList       = "/employee/api/employees/list/"
	UpdateLeaveBalance = "/employee/api/update-leave-balance/"
)

func MonthlyReport(year, month int) string {
	return fmt.Sprintf("/api/v1/attendance/monthly-report/%d/%d/", year, month)
}

// LeaveAction is the path for approve/reject on a leave request.
func LeaveAction(id, action string) string {
	return leaveActionPrefix + segment(id) + "/" + segment(action) + "/"
}

func LeaveCancel(id string) string {
	return leaveCancelPrefix + segment(id) + "/"
}

// segment escapes s as a single path segment. Dot segments are escaped too,
// or URL resolution would collapse them into a different endpoint.
func segment(s string) string {
	switch s {
	case ".", "..":
		return strings.ReplaceAll(s, ".", "%2E")
	}
	return url.PathEscape(s)
}

// Websocket stream paths.
const (
	StreamNotifications           = "/ws/notifications/"
	StreamAuthorizedNotifications = "/ws/authorized_notifications/"
	StreamAttendance              = "/ws/attendance/"
	StreamEmployeeAttendance      = "/ws/employee_attendance/"
	StreamAuthorizedAttendance    = "/ws/authorized_attendance/"
)

// Stream describes a realtime endpoint. Group, when set, is joined right after
// the connection opens.
type Stream struct {
	Path  string
	Group string
}

// NotificationStream is the personal notification feed for role.
func NotificationStream(role session.Role) Stream {
	if role == session.RoleAuthorized {
		return Stream{Path: StreamAuthorizedNotifications}
	}
	return Stream{Path: StreamNotifications}
}

// AttendanceStream is the live attendance feed for role.
func AttendanceStream(role session.Role) Stream {
	if role == session.RoleAuthorized {
		return Stream{Path: StreamAuthorizedAttendance, Group: "authorized_attendance"}
	}
	return Stream{Path: StreamEmployeeAttendance}
}

// UI destinations.
const (
	Home                = "/"
	EmployeeLoginPage   = "/auth/login/employee/"
	AuthorizedLoginPage = "/auth/login/authorized/"
	EmployeeDashboard   = "/employee/employee-dashboard/"
	AuthorizedDashboard = "/employee/authorized-dashboard/"
)

// LoginPage maps a role onto its login destination. Anything other than
// authorized goes to the employee login.
func LoginPage(role session.Role) string {
	if role == session.RoleAuthorized {
		return AuthorizedLoginPage
	}
	return EmployeeLoginPage
}

// Dashboard is where a freshly signed-in user of role lands.
func Dashboard(role session.Role) string {
	if role == session.RoleAuthorized {
		return AuthorizedDashboard
	}
	return EmployeeDashboard
}

// Navigator moves the UI to another destination. On the web this is a full
// page load; in the terminal client it ends the current screen.
type Navigator interface {
	Navigate(destination string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(destination string)

func (f NavigatorFunc) Navigate(destination string) { f(destination) }

// Discard ignores navigation requests.
var Discard Navigator = NavigatorFunc(func(string) {})
