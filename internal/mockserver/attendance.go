package mockserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/timekeeper/client/internal/realtime"
)

type statusResponse struct {
	Status         string   `json:"status"`
	CheckIns       []string `json:"check_ins"`
	CheckOuts      []string `json:"check_outs"`
	Lateness       int      `json:"lateness"`
	WorkMinutes    int      `json:"work_minutes"`
	RemainingLeave float64  `json:"remaining_leave"`
}

func (s *Server) statusOf(e employee) statusResponse {
	status := e.status()
	if status == StatusNotCheckedIn && s.dir.onLeave(e.ID, e.Day) {
		status = StatusOnLeave
	}
	return statusResponse{
		Status:         status,
		CheckIns:       formatTimes(e.CheckIns),
		CheckOuts:      formatTimes(e.CheckOuts),
		Lateness:       e.LatenessMin,
		WorkMinutes:    e.WorkMinutes,
		RemainingLeave: e.RemainingLeave,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request, c *claims) {
	e, err := s.dir.lookup(c.EmployeeID, s.now())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.statusOf(e))
}

func (s *Server) handleCheckIn(w http.ResponseWriter, _ *http.Request, c *claims) {
	now := s.now()
	e, late, err := s.dir.checkIn(c.EmployeeID, now)
	if err != nil {
		s.fail(w, err)
		return
	}
	at := now.Format(timeLayout)
	s.toUser(c.UserID, event(realtime.TypeCheckIn, "Checked in at "+at, map[string]string{"time": at}))
	s.toAuthorized(event(realtime.TypeEmployeeCheckIn, fmt.Sprintf("%s checked in at %s", e.Username, at),
		map[string]string{"employee": e.Username, "time": at}))
	if late > 0 {
		s.toAuthorized(event(realtime.TypeEmployeeLate, fmt.Sprintf("%s was late by %d minutes", e.Username, late),
			map[string]any{"employee": e.Username, "minutes": late}))
	}
	s.attendanceChanged(c.UserID, e)

	resp := s.statusOf(e)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Checked in successfully.",
		"status":   resp.Status,
		"time":     at,
		"lateness": late,
	})
}

func (s *Server) handleCheckOut(w http.ResponseWriter, _ *http.Request, c *claims) {
	now := s.now()
	e, worked, err := s.dir.checkOut(c.EmployeeID, now)
	if err != nil {
		s.fail(w, err)
		return
	}
	at := now.Format(timeLayout)
	s.toUser(c.UserID, event(realtime.TypeCheckOut, "Checked out at "+at, map[string]string{"time": at}))
	s.toUser(c.UserID, event(realtime.TypeDailyWorkSummary, "You worked "+formatMinutes(worked)+" today",
		map[string]any{"date": e.Day, "work_minutes": worked}))
	s.toAuthorized(event(realtime.TypeEmployeeCheckOut, fmt.Sprintf("%s checked out at %s", e.Username, at),
		map[string]string{"employee": e.Username, "time": at}))
	s.attendanceChanged(c.UserID, e)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Checked out successfully.",
		"status":       e.status(),
		"time":         at,
		"work_minutes": worked,
	})
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, _ *claims) {
	year, err1 := strconv.Atoi(r.PathValue("year"))
	month, err2 := strconv.Atoi(r.PathValue("month"))
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid year or month.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":      year,
		"month":     month,
		"employees": s.dir.monthly(year, time.Month(month)),
	})
}

func formatTimes(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(time.RFC3339)
	}
	return out
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
