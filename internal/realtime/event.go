package realtime

import (
	"encoding/json"
	"fmt"
)

// Event is one inbound frame. Message is kept raw so a frame whose message
// is not a string still reaches its subscribers.
type Event struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Text is the message when the server sent a string, otherwise empty.
func (e Event) Text() string {
	var s string
	if len(e.Message) == 0 || json.Unmarshal(e.Message, &s) != nil {
		return ""
	}
	return s
}

// AuthenticationRequired is sent by the server when it rejects a live
// connection. It is never delivered to subscribers.
const AuthenticationRequired = "authentication_required"

// Known event types.
const (
	TypeCheckIn                  = "CHECK_IN"
	TypeCheckOut                 = "CHECK_OUT"
	TypeDailyWorkSummary         = "DAILY_WORK_SUMMARY"
	TypeLeaveRequest             = "LEAVE_REQUEST"
	TypeLeaveRequestInsufficient = "LEAVE_REQUEST_INSUFFICIENT"
	TypeLeaveRequestApproved     = "LEAVE_REQUEST_APPROVED"
	TypeLeaveRequestRejected     = "LEAVE_REQUEST_REJECTED"
	TypeLeaveRequestConflict     = "LEAVE_REQUEST_CONFLICT"
	TypeLeaveRequestCancelled    = "LEAVE_REQUEST_CANCELLED"
	TypeLeaveBalanceUpdated      = "LEAVE_BALANCE_UPDATED"
	TypeEmployeeLate             = "EMPLOYEE_LATE"
	TypeNoCheckIn                = "NO_CHECK_IN"
	TypeEmployeeCheckIn          = "EMPLOYEE_CHECK_IN"
	TypeEmployeeCheckOut         = "EMPLOYEE_CHECK_OUT"
	TypeLowLeaveBalance          = "LOW_LEAVE_BALANCE"
	TypeAttendanceUpdate         = "realtime_attendance_update"
	TypeEmployeeAttendanceUpdate = "employee_realtime_attendance_update"
	TypeError                    = "error"
)

var knownTypes = func() map[string]bool {
	known := map[string]bool{AuthenticationRequired: true}
	for _, types := range [][]string{EmployeeTypes, AuthorizedTypes, {TypeAttendanceUpdate, TypeEmployeeAttendanceUpdate}} {
		for _, t := range types {
			known[t] = true
		}
	}
	return known
}()

// metricType keeps the event metric label to the known types; anything the
// server invents is counted as "unknown".
func metricType(eventType string) string {
	if knownTypes[eventType] {
		return eventType
	}
	return "unknown"
}

// EmployeeTypes are the events pushed on an employee's notification stream.
var EmployeeTypes = []string{
	TypeCheckIn, TypeCheckOut, TypeDailyWorkSummary,
	TypeLeaveRequestInsufficient, TypeLeaveRequestApproved, TypeLeaveRequestRejected,
	TypeLeaveRequestConflict, TypeLeaveRequestCancelled, TypeLeaveBalanceUpdated,
	TypeNoCheckIn, TypeError,
}

// AuthorizedTypes are the events pushed on the authorized notification stream.
var AuthorizedTypes = []string{
	TypeLeaveRequest, TypeLeaveRequestCancelled, TypeEmployeeLate, TypeNoCheckIn,
	TypeEmployeeCheckIn, TypeEmployeeCheckOut, TypeLowLeaveBalance, TypeError,
}

// Level is the severity an alert is shown with.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// LevelOf maps an event type onto the alert level its message is shown with.
func LevelOf(eventType string) Level {
	switch eventType {
	case TypeLeaveRequestApproved, TypeCheckIn, TypeCheckOut, TypeLeaveBalanceUpdated:
		return LevelSuccess
	case TypeLeaveRequestRejected, TypeLeaveRequestConflict, TypeLeaveRequestInsufficient, TypeError:
		return LevelDanger
	case TypeEmployeeLate, TypeNoCheckIn, TypeLowLeaveBalance, TypeLeaveRequestCancelled:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// Alerter surfaces a transient message to the user.
type Alerter interface {
	Alert(level Level, message string)
}

type AlerterFunc func(level Level, message string)

func (f AlerterFunc) Alert(level Level, message string) { f(level, message) }

// Notification is the typed form of an event's data.
type Notification interface {
	EventType() string
}

// LeaveDecision reports a change on one of the user's own leave requests.
type LeaveDecision struct {
	Type      string `json:"-"`
	ID        string `json:"id,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

func (n LeaveDecision) EventType() string { return n.Type }

// EmployeeActivity is an authorized-side feed item about an employee.
type EmployeeActivity struct {
	Type     string  `json:"-"`
	Employee string  `json:"employee"`
	Time     string  `json:"time,omitempty"`
	Minutes  int     `json:"minutes,omitempty"`
	Days     float64 `json:"remaining_leave,omitempty"`
}

func (n EmployeeActivity) EventType() string { return n.Type }

// BalanceUpdate carries the user's new remaining leave.
type BalanceUpdate struct {
	RemainingLeave float64 `json:"remaining_leave"`
}

func (BalanceUpdate) EventType() string { return TypeLeaveBalanceUpdated }

// WorkSummary is sent at the end of the working day.
type WorkSummary struct {
	Date        string `json:"date"`
	WorkMinutes int    `json:"work_minutes"`
	Lateness    int    `json:"lateness,omitempty"`
}

func (WorkSummary) EventType() string { return TypeDailyWorkSummary }

// AttendanceUpdate is a live attendance row. Its shape is owned by the view
// that renders it, so the data is kept raw.
type AttendanceUpdate struct {
	Type string
	Data json.RawMessage
}

func (n AttendanceUpdate) EventType() string { return n.Type }

// Unknown wraps an event type this client has no decoder for.
type Unknown struct {
	Type string
	Data json.RawMessage
}

func (n Unknown) EventType() string { return n.Type }

// Decode turns ev's data into its typed notification. Unrecognised types
// yield Unknown; recognised types with malformed data are an error.
func Decode(ev Event) (Notification, error) {
	switch ev.Type {
	case TypeLeaveRequestApproved, TypeLeaveRequestRejected, TypeLeaveRequestCancelled,
		TypeLeaveRequestConflict, TypeLeaveRequestInsufficient:
		n := LeaveDecision{Type: ev.Type}
		err := decodeInto(ev, &n)
		return n, err
	case TypeLeaveRequest, TypeEmployeeLate, TypeNoCheckIn, TypeLowLeaveBalance,
		TypeEmployeeCheckIn, TypeEmployeeCheckOut, TypeCheckIn, TypeCheckOut:
		n := EmployeeActivity{Type: ev.Type}
		err := decodeInto(ev, &n)
		return n, err
	case TypeLeaveBalanceUpdated:
		var n BalanceUpdate
		err := decodeInto(ev, &n)
		return n, err
	case TypeDailyWorkSummary:
		var n WorkSummary
		err := decodeInto(ev, &n)
		return n, err
	case TypeAttendanceUpdate, TypeEmployeeAttendanceUpdate:
		return AttendanceUpdate{Type: ev.Type, Data: ev.Data}, nil
	default:
		return Unknown{Type: ev.Type, Data: ev.Data}, nil
	}
}

func decodeInto(ev Event, v any) error {
	if len(ev.Data) == 0 || string(ev.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", ev.Type, err)
	}
	return nil
}
