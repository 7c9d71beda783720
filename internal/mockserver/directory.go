package mockserver

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/timekeeper/client/internal/session"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	defaultAnnualLeave = 14
	lowBalanceDays     = 3
)

// Attendance states reported by the status endpoint.
const (
	StatusNotCheckedIn = "not_checked_in"
	StatusCheckedIn    = "checked_in"
	StatusCheckedOut   = "checked_out"
	StatusOnLeave      = "on_leave"
)

// Leave request states.
const (
	LeavePending   = "PENDING"
	LeaveApproved  = "APPROVED"
	LeaveRejected  = "REJECTED"
	LeaveCancelled = "CANCELLED"
)

// apiError is a rejection rendered as {"error": msg} with status.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

var (
	errUserExists       = &apiError{http.StatusBadRequest, "A user with that username already exists."}
	errBadCredentials   = &apiError{http.StatusUnauthorized, "Invalid credentials"}
	errAlreadyIn        = &apiError{http.StatusBadRequest, "You have already checked in today."}
	errNotIn            = &apiError{http.StatusBadRequest, "You have not checked in yet."}
	errAlreadyOut       = &apiError{http.StatusBadRequest, "You have already checked out today."}
	errNoEmployee       = &apiError{http.StatusNotFound, "Employee not found."}
	errNoLeave          = &apiError{http.StatusNotFound, "Leave request not found."}
	errNotPending       = &apiError{http.StatusBadRequest, "Only pending leave requests can be changed."}
	errInsufficient     = &apiError{http.StatusBadRequest, "Insufficient leave balance."}
	errOverlap          = &apiError{http.StatusConflict, "Leave request overlaps an existing request."}
	errDateOrder        = &apiError{http.StatusBadRequest, "End date must be after start date."}
	errStartTooEarly    = &apiError{http.StatusBadRequest, "Start date cannot be before tomorrow."}
	errNotOwner         = &apiError{http.StatusForbidden, "You can only cancel your own leave requests."}
	errInvalidDate      = &apiError{http.StatusBadRequest, "Dates must be formatted as YYYY-MM-DD."}
	errInvalidBalance   = &apiError{http.StatusBadRequest, "Leave balance cannot become negative."}
	errUnsupportedState = &apiError{http.StatusBadRequest, "Unsupported leave action."}
)

type user struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	Role         session.Role
	EmployeeID   int64
}

type employee struct {
	ID             int64
	Username       string
	AnnualLeave    int
	RemainingLeave float64
	LatenessMin    int
	WorkMinutes    int
	Day            string
	CheckIns       []time.Time
	CheckOuts      []time.Time
	history        map[string]*dayRecord
}

type dayRecord struct {
	WorkMinutes int
	Lateness    int
}

type leave struct {
	ID           string    `json:"id"`
	Employee     int64     `json:"employee"`
	EmployeeName string    `json:"employee_name"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Reason       string    `json:"reason"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// days counts the calendar days a leave spans, both ends included.
func (l *leave) days() float64 {
	start, _ := time.Parse(dateLayout, l.StartDate)
	end, _ := time.Parse(dateLayout, l.EndDate)
	return end.Sub(start).Hours()/24 + 1
}

// directory is the mock server's whole data model, guarded by one mutex.
type directory struct {
	mu         sync.Mutex
	cost       int
	workStart  time.Duration
	nextUserID int64
	nextEmpID  int64
	users      map[string]*user
	employees  map[int64]*employee
	leaves     map[string]*leave
}

func newDirectory(bcryptCost int, workStart time.Duration) *directory {
	return &directory{
		cost:      bcryptCost,
		workStart: workStart,
		users:     make(map[string]*user),
		employees: make(map[int64]*employee),
		leaves:    make(map[string]*leave),
	}
}

func (d *directory) addUser(username, email, password string, role session.Role) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[username]; ok {
		return nil, errUserExists
	}
	d.nextUserID++
	u := &user{
		ID:           d.nextUserID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if role == session.RoleEmployee {
		d.nextEmpID++
		e := &employee{
			ID:             d.nextEmpID,
			Username:       username,
			AnnualLeave:    defaultAnnualLeave,
			RemainingLeave: defaultAnnualLeave,
			history:        make(map[string]*dayRecord),
		}
		d.employees[e.ID] = e
		u.EmployeeID = e.ID
	}
	d.users[username] = u
	return u, nil
}

func (d *directory) authenticate(username, password string) (*user, error) {
	d.mu.Lock()
	u, ok := d.users[username]
	d.mu.Unlock()
	if !ok {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return u, nil
}

func (d *directory) userIDForEmployee(empID int64) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.EmployeeID == empID {
			return u.ID
		}
	}
	return 0
}

// rollover resets the per-day attendance of e when now is a new day.
func (e *employee) rollover(now time.Time) {
	day := now.Format(dateLayout)
	if e.Day == day {
		return
	}
	e.Day = day
	e.CheckIns = nil
	e.CheckOuts = nil
}

func (e *employee) status() string {
	switch {
	case len(e.CheckIns) == 0:
		return StatusNotCheckedIn
	case len(e.CheckOuts) >= len(e.CheckIns):
		return StatusCheckedOut
	default:
		return StatusCheckedIn
	}
}

func (e *employee) record(day string) *dayRecord {
	r, ok := e.history[day]
	if !ok {
		r = &dayRecord{}
		e.history[day] = r
	}
	return r
}

// checkIn records a check-in and returns the minutes late, if any.
func (d *directory) checkIn(empID int64, now time.Time) (employee, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.employees[empID]
	if !ok {
		return employee{}, 0, errNoEmployee
	}
	e.rollover(now)
	if e.status() == StatusCheckedIn {
		return employee{}, 0, errAlreadyIn
	}
	late := 0
	if len(e.CheckIns) == 0 {
		rec := e.record(e.Day)
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if over := now.Sub(midnight.Add(d.workStart)); over > 0 {
			late = int(over.Minutes())
			e.LatenessMin += late
			rec.Lateness += late
		}
	}
	e.CheckIns = append(e.CheckIns, now)
	return *e, late, nil
}

func (d *directory) checkOut(empID int64, now time.Time) (employee, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.employees[empID]
	if !ok {
		return employee{}, 0, errNoEmployee
	}
	e.rollover(now)
	switch e.status() {
	case StatusNotCheckedIn:
		return employee{}, 0, errNotIn
	case StatusCheckedOut:
		return employee{}, 0, errAlreadyOut
	}
	e.CheckOuts = append(e.CheckOuts, now)
	worked := int(now.Sub(e.CheckIns[len(e.CheckIns)-1]).Minutes())
	e.WorkMinutes += worked
	e.record(e.Day).WorkMinutes += worked
	return *e, worked, nil
}

// lookup returns a copy of employee id as of now.
func (d *directory) lookup(id int64, now time.Time) (employee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.employees[id]
	if !ok {
		return employee{}, errNoEmployee
	}
	e.rollover(now)
	return *e, nil
}

func (d *directory) allEmployees(now time.Time) []employee {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]employee, 0, len(d.employees))
	for _, e := range d.employees {
		e.rollover(now)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *directory) adjustBalance(empID int64, change float64) (employee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.employees[empID]
	if !ok {
		return employee{}, errNoEmployee
	}
	if e.RemainingLeave+change < 0 {
		return employee{}, errInvalidBalance
	}
	e.RemainingLeave += change
	return *e, nil
}

func (d *directory) createLeave(empID int64, start, end, reason string, now time.Time) (*leave, error) {
	s, err1 := time.Parse(dateLayout, start)
	e, err2 := time.Parse(dateLayout, end)
	if err1 != nil || err2 != nil {
		return nil, errInvalidDate
	}
	if s.After(e) {
		return nil, errDateOrder
	}
	today, _ := time.Parse(dateLayout, now.Format(dateLayout))
	if !s.After(today) {
		return nil, errStartTooEarly
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	emp, ok := d.employees[empID]
	if !ok {
		return nil, errNoEmployee
	}
	l := &leave{
		ID:           uuid.NewString(),
		Employee:     empID,
		EmployeeName: emp.Username,
		StartDate:    start,
		EndDate:      end,
		Reason:       reason,
		Status:       LeavePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if l.days() > emp.RemainingLeave {
		return l, errInsufficient
	}
	for _, other := range d.leaves {
		if other.Employee != empID || other.Status == LeaveRejected || other.Status == LeaveCancelled {
			continue
		}
		if other.StartDate <= end && start <= other.EndDate {
			return l, errOverlap
		}
	}
	d.leaves[l.ID] = l
	return l, nil
}

// transition moves a pending leave to status. Approval deducts the balance.
func (d *directory) transition(id, status string, byEmployee int64, now time.Time) (leave, employee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.leaves[id]
	if !ok {
		return leave{}, employee{}, errNoLeave
	}
	if byEmployee != 0 && l.Employee != byEmployee {
		return leave{}, employee{}, errNotOwner
	}
	if l.Status != LeavePending {
		return leave{}, employee{}, errNotPending
	}
	emp := d.employees[l.Employee]
	switch status {
	case LeaveApproved:
		if l.days() > emp.RemainingLeave {
			return leave{}, employee{}, errInsufficient
		}
		emp.RemainingLeave -= l.days()
	case LeaveRejected, LeaveCancelled:
	default:
		return leave{}, employee{}, errUnsupportedState
	}
	l.Status = status
	l.UpdatedAt = now
	return *l, *emp, nil
}

func (d *directory) leavesOf(empID int64) []leave {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []leave
	for _, l := range d.leaves {
		if empID == 0 || l.Employee == empID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// onLeave reports whether empID has an approved leave covering day.
func (d *directory) onLeave(empID int64, day string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.leaves {
		if l.Employee == empID && l.Status == LeaveApproved && l.StartDate <= day && day <= l.EndDate {
			return true
		}
	}
	return false
}

// monthly summarises every employee's history for year/month.
func (d *directory) monthly(year int, month time.Month) []reportRow {
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))

	d.mu.Lock()
	defer d.mu.Unlock()
	rows := make([]reportRow, 0, len(d.employees))
	for _, e := range d.employees {
		row := reportRow{EmployeeID: e.ID, Username: e.Username}
		for day, r := range e.history {
			if len(day) < len(prefix) || day[:len(prefix)] != prefix {
				continue
			}
			row.DaysPresent++
			row.WorkMinutes += r.WorkMinutes
			row.LatenessMinutes += r.Lateness
		}
		for _, l := range d.leaves {
			if l.Employee == e.ID && l.Status == LeaveApproved && l.StartDate[:len(prefix)] == prefix {
				row.LeaveDays += l.days()
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EmployeeID < rows[j].EmployeeID })
	return rows
}

type reportRow struct {
	EmployeeID      int64   `json:"employee_id"`
	Username        string  `json:"username"`
	DaysPresent     int     `json:"days_present"`
	WorkMinutes     int     `json:"work_minutes"`
	LatenessMinutes int     `json:"lateness_minutes"`
	LeaveDays       float64 `json:"leave_days"`
}
