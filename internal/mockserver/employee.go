package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type overviewRow struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Status         string `json:"status"`
	LastActionTime string `json:"last_action_time"`
	Lateness       string `json:"lateness"`
	WorkDuration   string `json:"work_duration"`
	RemainingLeave string `json:"remaining_leave"`
	AnnualLeave    int    `json:"annual_leave"`
}

func (s *Server) overviewRow(e employee) overviewRow {
	last := "-"
	switch {
	case len(e.CheckOuts) > 0 && len(e.CheckOuts) >= len(e.CheckIns):
		last = e.CheckOuts[len(e.CheckOuts)-1].Format(timeLayout)
	case len(e.CheckIns) > 0:
		last = e.CheckIns[len(e.CheckIns)-1].Format(timeLayout)
	}
	return overviewRow{
		ID:             e.ID,
		Username:       e.Username,
		Status:         s.statusOf(e).Status,
		LastActionTime: last,
		Lateness:       formatMinutes(e.LatenessMin),
		WorkDuration:   formatMinutes(e.WorkMinutes),
		RemainingLeave: leaveDisplay(e.RemainingLeave),
		AnnualLeave:    e.AnnualLeave,
	}
}

func (s *Server) handleRemainingLeave(w http.ResponseWriter, _ *http.Request, c *claims) {
	e, err := s.dir.lookup(c.EmployeeID, s.now())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remaining_leave":         e.RemainingLeave,
		"annual_leave":            e.AnnualLeave,
		"remaining_leave_display": leaveDisplay(e.RemainingLeave),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request, _ *claims) {
	employees := s.dir.allEmployees(s.now())
	rows := make([]overviewRow, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, s.overviewRow(e))
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleEmployeeList(w http.ResponseWriter, _ *http.Request, _ *claims) {
	type item struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	employees := s.dir.allEmployees(s.now())
	out := make([]item, 0, len(employees))
	for _, e := range employees {
		out = append(out, item{e.ID, e.Username})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateBalance(w http.ResponseWriter, r *http.Request, _ *claims) {
	var body struct {
		EmployeeID json.Number `json:"employee_id"`
		Change     float64     `json:"change"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	id, err := strconv.ParseInt(body.EmployeeID.String(), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "employee_id must be an integer.")
		return
	}

	e, err := s.dir.adjustBalance(id, body.Change)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.balanceChanged(s.dir.userIDForEmployee(id), e)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Leave balance updated.",
		"remaining_leave": e.RemainingLeave,
	})
}

// leaveDisplay renders fractional days as "2d 4h 0m".
func leaveDisplay(days float64) string {
	total := time.Duration(days * 24 * float64(time.Hour))
	d := int(total / (24 * time.Hour))
	total -= time.Duration(d) * 24 * time.Hour
	h := int(total / time.Hour)
	total -= time.Duration(h) * time.Hour
	return fmt.Sprintf("%dd %dh %dm", d, h, int(total/time.Minute))
}

func formatDays(days float64) string {
	return strconv.FormatFloat(days, 'f', -1, 64)
}
