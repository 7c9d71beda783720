package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/timekeeper/client/internal/gateway"
	"github.com/timekeeper/client/internal/realtime"
	"github.com/timekeeper/client/internal/session"
	"github.com/timekeeper/client/internal/theme"
)

const (
	maxLogEntries = 200
	logPageSize   = 15
)

// Backend is what the dashboard reads and writes; *api.Client satisfies it.
type Backend interface {
	AttendanceStatus(ctx context.Context) (json.RawMessage, error)
	CheckIn(ctx context.Context) (json.RawMessage, error)
	CheckOut(ctx context.Context) (json.RawMessage, error)
	MyLeaves(ctx context.Context) (json.RawMessage, error)
	AllLeaves(ctx context.Context) (json.RawMessage, error)
	RemainingLeave(ctx context.Context) (json.RawMessage, error)
	EmployeeOverview(ctx context.Context) (json.RawMessage, error)
}

type Options struct {
	Session         session.Session
	Theme           string
	AlertDuration   time.Duration
	RefreshInterval time.Duration
	// Streams names the realtime channels shown in the status bar, in order.
	Streams []string
	// SaveTheme persists a theme change. Optional.
	SaveTheme func(name string) error
}

type logEntry struct {
	at      time.Time
	typ     string
	message string
}

type alert struct {
	id      int
	level   realtime.Level
	message string
}

type refreshMsg struct {
	status, balance, leaves, overview json.RawMessage
	err                               error
}

type actionMsg struct {
	message string
	err     error
}

type dismissMsg struct{ id int }

type tickMsg time.Time

// Model is the root Bubble Tea model.
type Model struct {
	backend Backend
	ctx     context.Context
	cancel  context.CancelFunc
	opts    Options

	keys   KeyMap
	theme  theme.Theme
	width  int
	height int

	streams map[string]realtime.State

	status   gjson.Result
	balance  gjson.Result
	leaves   []gjson.Result
	overview []gjson.Result
	loaded   bool
	lastErr  string

	events    []logEntry
	showLog   bool
	logOffset int

	alerts    []alert
	nextAlert int

	destination string
}

// New creates the root model.
func New(backend Backend, opts Options) Model {
	if opts.AlertDuration <= 0 {
		opts.AlertDuration = 5 * time.Second
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		backend: backend,
		ctx:     ctx,
		cancel:  cancel,
		opts:    opts,
		keys:    DefaultKeyMap(),
		theme:   theme.New(opts.Theme),
		streams: make(map[string]realtime.State),
	}
	for _, s := range opts.Streams {
		m.streams[s] = realtime.Disconnected
	}
	return m
}

// Destination is where a navigation request sent the user, empty when the
// dashboard was quit normally.
func (m Model) Destination() string {
	return m.destination
}

func (m Model) employee() bool {
	return m.opts.Session.Role != session.RoleAuthorized
}

// Init loads the first snapshot and schedules periodic refreshes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		return m.handleEvent(msg)

	case AlertMsg:
		return m.pushAlert(msg.Level, msg.Message)

	case dismissMsg:
		for i, a := range m.alerts {
			if a.id == msg.id {
				m.alerts = append(m.alerts[:i:i], m.alerts[i+1:]...)
				break
			}
		}
		return m, nil

	case StateMsg:
		m.streams[msg.Stream] = msg.State
		if msg.State == realtime.Exhausted {
			return m.pushAlert(realtime.LevelDanger, "Live updates for "+msg.Stream+" stopped. Press r to refresh.")
		}
		return m, nil

	case NavigateMsg:
		m.destination = msg.Destination
		m.cancel()
		return m, tea.Quit

	case refreshMsg:
		if msg.err != nil {
			m.lastErr = gateway.UserMessage(msg.err)
			return m, nil
		}
		m.lastErr = ""
		m.loaded = true
		m.status = gjson.ParseBytes(msg.status)
		m.balance = gjson.ParseBytes(msg.balance)
		m.leaves = gjson.ParseBytes(msg.leaves).Array()
		m.overview = gjson.ParseBytes(msg.overview).Array()
		return m, nil

	case actionMsg:
		if msg.err != nil {
			return m.pushAlert(realtime.LevelDanger, gateway.UserMessage(msg.err))
		}
		next, cmd := m.pushAlert(realtime.LevelSuccess, msg.message)
		return next, tea.Batch(cmd, m.refresh())

	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.CheckIn):
		if !m.employee() {
			return m.pushAlert(realtime.LevelWarning, "Only employees can check in.")
		}
		return m, m.act(m.backend.CheckIn)

	case key.Matches(msg, m.keys.CheckOut):
		if !m.employee() {
			return m.pushAlert(realtime.LevelWarning, "Only employees can check out.")
		}
		return m, m.act(m.backend.CheckOut)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.Log):
		m.showLog = !m.showLog
		m.logOffset = 0
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.showLog && m.logOffset+logPageSize < len(m.events) {
			m.logOffset++
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.showLog && m.logOffset > 0 {
			m.logOffset--
		}
		return m, nil

	case key.Matches(msg, m.keys.Theme):
		name := theme.Light
		if m.theme.Name == theme.Light {
			name = theme.Dark
		}
		m.theme = theme.New(name)
		if m.opts.SaveTheme != nil {
			if err := m.opts.SaveTheme(name); err != nil {
				return m.pushAlert(realtime.LevelWarning, "Could not save theme: "+err.Error())
			}
		}
		return m, nil
	}

	return m, nil
}

// handleEvent logs ev and refreshes the panels it affects. Live attendance
// rows are applied in place.
func (m Model) handleEvent(ev EventMsg) (tea.Model, tea.Cmd) {
	m.events = append(m.events, logEntry{at: ev.At, typ: ev.Type, message: summarize(ev)})
	if len(m.events) > maxLogEntries {
		m.events = m.events[len(m.events)-maxLogEntries:]
	}

	switch n := ev.Notification.(type) {
	case realtime.AttendanceUpdate:
		if n.Type == realtime.TypeAttendanceUpdate {
			m.upsertOverview(gjson.ParseBytes(n.Data))
		}
		return m, nil
	case realtime.Unknown:
		if n.Type == realtime.TypeError {
			return m, nil
		}
	}
	return m, m.refresh()
}

func (m *Model) upsertOverview(row gjson.Result) {
	id := row.Get("id").Int()
	for i, r := range m.overview {
		if r.Get("id").Int() == id {
			m.overview[i] = row
			return
		}
	}
	m.overview = append(m.overview, row)
}

func (m Model) pushAlert(level realtime.Level, message string) (tea.Model, tea.Cmd) {
	if message == "" {
		return m, nil
	}
	m.nextAlert++
	id := m.nextAlert
	m.alerts = append(m.alerts, alert{id: id, level: level, message: message})
	return m, tea.Tick(m.opts.AlertDuration, func(time.Time) tea.Msg { return dismissMsg{id: id} })
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh reloads every panel for the signed-in role in parallel.
func (m Model) refresh() tea.Cmd {
	backend, ctx, employee := m.backend, m.ctx, m.employee()
	return func() tea.Msg {
		var msg refreshMsg
		g, gctx := errgroup.WithContext(ctx)
		if employee {
			g.Go(func() (err error) {
				msg.status, err = backend.AttendanceStatus(gctx)
				return err
			})
			g.Go(func() (err error) {
				msg.leaves, err = backend.MyLeaves(gctx)
				return err
			})
			g.Go(func() (err error) {
				msg.balance, err = backend.RemainingLeave(gctx)
				return err
			})
		} else {
			g.Go(func() (err error) {
				msg.overview, err = backend.EmployeeOverview(gctx)
				return err
			})
			g.Go(func() (err error) {
				msg.leaves, err = backend.AllLeaves(gctx)
				return err
			})
		}
		msg.err = g.Wait()
		return msg
	}
}

func (m Model) act(call func(context.Context) (json.RawMessage, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		payload, err := call(ctx)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: gjson.GetBytes(payload, "message").String()}
	}
}

// View renders the full dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.renderStatusBar()}
	for _, a := range m.alerts {
		sections = append(sections, m.theme.Alert(string(a.level), a.message))
	}
	if m.lastErr != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(m.theme.Danger).Render(m.lastErr))
	}

	switch {
	case m.showLog:
		sections = append(sections, m.renderLog())
	case !m.loaded:
		sections = append(sections, m.theme.Dimmed.Render("  Loading..."))
	case m.employee():
		sections = append(sections, m.renderAttendance(), m.renderLeaves())
	default:
		sections = append(sections, m.renderOverview(), m.renderLeaves())
	}

	sections = append(sections, m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatusBar() string {
	parts := []string{
		m.theme.Header.Render("timekeeper"),
		fmt.Sprintf("%s (%s)", m.opts.Session.DisplayName, m.opts.Session.Role),
	}
	for _, name := range m.opts.Streams {
		st := m.streams[name].String()
		parts = append(parts, theme.StateGlyph(st)+" "+name+":"+st)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderAttendance() string {
	status := m.status.Get("status").String()
	lines := []string{
		m.theme.Header.Render("Today"),
		"Status:      " + lipgloss.NewStyle().Foreground(m.theme.StatusColor(status)).Render(statusLabel(status)),
		fmt.Sprintf("Check-ins:   %d", len(m.status.Get("check_ins").Array())),
		fmt.Sprintf("Lateness:    %d min", m.status.Get("lateness").Int()),
		fmt.Sprintf("Worked:      %s", minutes(m.status.Get("work_minutes").Int())),
	}
	if display := m.balance.Get("remaining_leave_display").String(); display != "" {
		lines = append(lines, "Leave left:  "+display)
	} else if m.balance.Get("remaining_leave").Exists() {
		lines = append(lines, "Leave left:  "+m.balance.Get("remaining_leave").String()+" days")
	}
	return m.theme.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderOverview() string {
	lines := []string{m.theme.Header.Render(fmt.Sprintf("%-16s %-15s %-6s %-9s %-9s %s",
		"Employee", "Status", "Last", "Late", "Worked", "Leave"))}
	for _, r := range m.overview {
		status := r.Get("status").String()
		label := lipgloss.NewStyle().Foreground(m.theme.StatusColor(status)).Render(fmt.Sprintf("%-15s", statusLabel(status)))
		lines = append(lines, fmt.Sprintf("%-16s %s %-6s %-9s %-9s %s",
			truncate(r.Get("username").String(), 16), label,
			r.Get("last_action_time").String(), r.Get("lateness").String(),
			r.Get("work_duration").String(), r.Get("remaining_leave").String()))
	}
	if len(m.overview) == 0 {
		lines = append(lines, m.theme.Dimmed.Render("No employees"))
	}
	return m.theme.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderLeaves() string {
	lines := []string{m.theme.Header.Render("Leave requests")}
	for _, l := range m.leaves {
		state := l.Get("status").String()
		who := ""
		if !m.employee() {
			who = truncate(l.Get("employee_name").String(), 12) + "  "
		}
		lines = append(lines, fmt.Sprintf("%s%s → %s  %s  %s",
			who, l.Get("start_date").String(), l.Get("end_date").String(),
			lipgloss.NewStyle().Foreground(m.theme.LeaveColor(state)).Render(state),
			m.theme.Dimmed.Render(truncate(l.Get("reason").String(), 30))))
	}
	if len(m.leaves) == 0 {
		lines = append(lines, m.theme.Dimmed.Render("No leave requests"))
	}
	return m.theme.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderLog() string {
	lines := []string{m.theme.Header.Render("Events")}
	end := len(m.events) - m.logOffset
	start := max(end-logPageSize, 0)
	for _, e := range m.events[start:end] {
		c := m.theme.LevelColor(string(realtime.LevelOf(e.typ)))
		lines = append(lines, fmt.Sprintf("%s %s %s",
			m.theme.Dimmed.Render(e.at.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(c).Render(fmt.Sprintf("%-28s", e.typ)),
			e.message))
	}
	if len(m.events) == 0 {
		lines = append(lines, m.theme.Dimmed.Render("No events yet"))
	}
	return m.theme.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	var parts []string
	for _, b := range m.keys.ShortHelp(m.employee()) {
		h := b.Help()
		parts = append(parts, h.Key+":"+h.Desc)
	}
	return m.theme.Dimmed.Render("  " + strings.Join(parts, "  "))
}

// summarize describes an event for the log.
func summarize(ev EventMsg) string {
	if ev.Err != nil {
		return "unreadable event: " + ev.Err.Error()
	}
	switch n := ev.Notification.(type) {
	case realtime.AttendanceUpdate:
		row := gjson.ParseBytes(n.Data)
		return row.Get("username").String() + " is " + statusLabel(row.Get("status").String())
	case realtime.BalanceUpdate:
		return fmt.Sprintf("Remaining leave: %g days", n.RemainingLeave)
	case realtime.WorkSummary:
		return "Worked " + minutes(int64(n.WorkMinutes)) + " on " + n.Date
	case realtime.LeaveDecision:
		text := typeLabel(n.Type)
		if n.StartDate != "" {
			text += " " + n.StartDate + " → " + n.EndDate
		}
		return text
	case realtime.EmployeeActivity:
		text := typeLabel(n.Type)
		if n.Employee != "" {
			text += ": " + n.Employee
		}
		if n.Minutes > 0 {
			text += fmt.Sprintf(" (%d min)", n.Minutes)
		}
		return text
	case realtime.Unknown:
		if msg := gjson.GetBytes(n.Data, "message").String(); msg != "" {
			return msg
		}
	}
	return typeLabel(ev.Type)
}

func typeLabel(eventType string) string {
	return strings.ToLower(strings.ReplaceAll(eventType, "_", " "))
}

func statusLabel(status string) string {
	switch status {
	case "checked_in":
		return "checked in"
	case "checked_out":
		return "checked out"
	case "on_leave":
		return "on leave"
	case "not_checked_in", "":
		return "not checked in"
	default:
		return status
	}
}

func minutes(m int64) string {
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
