package api

import (
	"context"
	"encoding/json"

	"github.com/timekeeper/client/internal/routes"
)

// AttendanceStatus returns today's status, check-in/out times, lateness and
// remaining leave for the signed-in employee.
func (c *Client) AttendanceStatus(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, routes.AttendanceStatus)
}

func (c *Client) CheckIn(ctx context.Context) (json.RawMessage, error) {
	return c.post(ctx, routes.AttendanceCheckIn, nil)
}

func (c *Client) CheckOut(ctx context.Context) (json.RawMessage, error) {
	return c.post(ctx, routes.AttendanceCheckOut, nil)
}

// MonthlyReport fetches the per-employee summary for year/month.
func (c *Client) MonthlyReport(ctx context.Context, year, month int) (json.RawMessage, error) {
	return c.get(ctx, routes.MonthlyReport(year, month))
}
