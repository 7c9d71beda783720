package mockserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/realtime"
)

// Generator periodically emits the events a real server raises from its
// scheduled jobs: missing check-ins after the start of the working day, low
// leave balances, and an attendance refresh for the dashboards. Each alert
// fires at most once per employee per day.
type Generator struct {
	srv      *Server
	interval time.Duration

	mu   sync.Mutex
	sent map[string]bool
}

func NewGenerator(srv *Server, interval time.Duration) *Generator {
	return &Generator{srv: srv, interval: interval, sent: make(map[string]bool)}
}

// Start runs Tick on every interval until ctx is done.
func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Tick()
		}
	}
}

// Tick evaluates every employee once and returns the number of events sent.
func (g *Generator) Tick() int {
	now := g.srv.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	pastStart := now.After(midnight.Add(g.srv.opts.WorkStart))

	sent := 0
	for _, e := range g.srv.dir.allEmployees(now) {
		if pastStart && e.status() == StatusNotCheckedIn && !g.srv.dir.onLeave(e.ID, e.Day) &&
			g.once(e.Day, realtime.TypeNoCheckIn, e.ID) {
			g.srv.toAuthorized(event(realtime.TypeNoCheckIn, e.Username+" has not checked in today",
				map[string]string{"employee": e.Username}))
			g.srv.toUser(g.srv.dir.userIDForEmployee(e.ID), event(realtime.TypeNoCheckIn,
				"You have not checked in today.", nil))
			sent++
		}
		if e.RemainingLeave < lowBalanceDays && g.once(e.Day, realtime.TypeLowLeaveBalance, e.ID) {
			g.srv.toAuthorized(lowBalanceEvent(e))
			sent++
		}
		g.srv.attendanceChanged(g.srv.dir.userIDForEmployee(e.ID), e)
	}
	if sent > 0 {
		g.srv.logger.Debug("generator tick", zap.Int("events", sent))
	}
	return sent
}

func (g *Generator) once(day, eventType string, empID int64) bool {
	key := fmt.Sprintf("%s/%s/%d", day, eventType, empID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sent[key] {
		return false
	}
	g.sent[key] = true
	return true
}
