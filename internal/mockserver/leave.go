package mockserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/realtime"
	"github.com/timekeeper/client/internal/session"
)

func (s *Server) handleMyLeaves(w http.ResponseWriter, _ *http.Request, c *claims) {
	writeJSON(w, http.StatusOK, nonNil(s.dir.leavesOf(c.EmployeeID)))
}

func (s *Server) handleAllLeaves(w http.ResponseWriter, _ *http.Request, _ *claims) {
	writeJSON(w, http.StatusOK, nonNil(s.dir.leavesOf(0)))
}

func (s *Server) handleCreateLeave(w http.ResponseWriter, r *http.Request, c *claims) {
	var body struct {
		Employee  int64  `json:"employee"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	empID := c.EmployeeID
	if c.Role == session.RoleAuthorized {
		if body.Employee == 0 {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"employee": {"This field is required."}})
			return
		}
		empID = body.Employee
	}

	l, err := s.dir.createLeave(empID, body.StartDate, body.EndDate, body.Reason, s.now())
	if err != nil {
		owner := s.dir.userIDForEmployee(empID)
		decision := map[string]string{"start_date": body.StartDate, "end_date": body.EndDate}
		switch {
		case errors.Is(err, errInsufficient):
			s.toUser(owner, event(realtime.TypeLeaveRequestInsufficient,
				"You do not have enough leave balance for this request.", decision))
		case errors.Is(err, errOverlap):
			s.toUser(owner, event(realtime.TypeLeaveRequestConflict,
				"Your leave request overlaps an existing request.", decision))
		}
		s.fail(w, err)
		return
	}

	s.logger.Info("leave requested", zap.String("id", l.ID), zap.String("employee", l.EmployeeName))
	s.toAuthorized(event(realtime.TypeLeaveRequest, "New leave request from "+l.EmployeeName, map[string]any{
		"id":         l.ID,
		"employee":   l.EmployeeName,
		"start_date": l.StartDate,
		"end_date":   l.EndDate,
	}))
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleLeaveAction(w http.ResponseWriter, r *http.Request, _ *claims) {
	var status, verb, eventType string
	switch r.PathValue("action") {
	case "approve":
		status, verb, eventType = LeaveApproved, "approved", realtime.TypeLeaveRequestApproved
	case "reject":
		status, verb, eventType = LeaveRejected, "rejected", realtime.TypeLeaveRequestRejected
	default:
		s.fail(w, errUnsupportedState)
		return
	}

	l, e, err := s.dir.transition(r.PathValue("id"), status, 0, s.now())
	if err != nil {
		s.fail(w, err)
		return
	}

	owner := s.dir.userIDForEmployee(l.Employee)
	s.toUser(owner, event(eventType,
		fmt.Sprintf("Your leave request from %s to %s has been %s.", l.StartDate, l.EndDate, verb),
		map[string]string{"id": l.ID, "start_date": l.StartDate, "end_date": l.EndDate}))
	if status == LeaveApproved {
		s.balanceChanged(owner, e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Leave request " + verb + ".", "leave": l})
}

func (s *Server) handleCancelLeave(w http.ResponseWriter, r *http.Request, c *claims) {
	var by int64
	if c.Role == session.RoleEmployee {
		by = c.EmployeeID
	}
	l, _, err := s.dir.transition(r.PathValue("id"), LeaveCancelled, by, s.now())
	if err != nil {
		s.fail(w, err)
		return
	}

	data := map[string]string{"id": l.ID, "employee": l.EmployeeName, "start_date": l.StartDate, "end_date": l.EndDate}
	s.toAuthorized(event(realtime.TypeLeaveRequestCancelled,
		fmt.Sprintf("Leave request from %s to %s has been cancelled.", l.StartDate, l.EndDate), data))
	if c.Role == session.RoleAuthorized {
		s.toUser(s.dir.userIDForEmployee(l.Employee), event(realtime.TypeLeaveRequestCancelled,
			fmt.Sprintf("Your leave request from %s to %s has been cancelled.", l.StartDate, l.EndDate), data))
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Leave request cancelled.", "leave": l})
}

// balanceChanged tells the employee about their new balance and warns
// authorized users when it runs low.
func (s *Server) balanceChanged(owner int64, e employee) {
	s.toUser(owner, event(realtime.TypeLeaveBalanceUpdated,
		fmt.Sprintf("Your remaining leave is now %s days.", formatDays(e.RemainingLeave)),
		map[string]float64{"remaining_leave": e.RemainingLeave}))
	if e.RemainingLeave < lowBalanceDays {
		s.toAuthorized(lowBalanceEvent(e))
	}
}

func lowBalanceEvent(e employee) realtime.Event {
	return event(realtime.TypeLowLeaveBalance, e.Username+"'s leave balance is below 3 days",
		map[string]any{"employee": e.Username, "remaining_leave": e.RemainingLeave})
}

func nonNil(ls []leave) []leave {
	if ls == nil {
		return []leave{}
	}
	return ls
}
