package api

import (
	"context"
	"encoding/json"

	"github.com/timekeeper/client/internal/routes"
)

func (c *Client) RemainingLeave(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, routes.RemainingLeave)
}

// EmployeeOverview is the authorized dashboard table: status, lateness, work
// duration and leave for every employee.
func (c *Client) EmployeeOverview(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, routes.EmployeeOverview)
}

func (c *Client) Employees(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, routes.EmployeeList)
}

// UpdateLeaveBalance adjusts an employee's remaining leave by change days.
func (c *Client) UpdateLeaveBalance(ctx context.Context, employeeID int64, change float64) (json.RawMessage, error) {
	body := struct {
		EmployeeID int64   `json:"employee_id"`
		Change     float64 `json:"change"`
	}{employeeID, change}
	return c.post(ctx, routes.UpdateLeaveBalance, body)
}
