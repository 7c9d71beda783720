package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

// LeaveRequest is the body of a leave creation. Employee is only sent by
// authorized users filing on someone's behalf.
type LeaveRequest struct {
	Employee  int64  `json:"employee,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

// Leave actions accepted by Act.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionCancel  = "cancel"
)

// MyLeaves lists the signed-in employee's own requests.
func (c *Client) MyLeaves(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, routes.LeaveEmployeeList)
}

// AllLeaves lists every request; authorized users only.
func (c *Client) AllLeaves(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, routes.LeaveAuthorizedList)
}

// CreateLeave files req against the create endpoint for the stored role.
func (c *Client) CreateLeave(ctx context.Context, req LeaveRequest) (json.RawMessage, error) {
	path := routes.LeaveEmployeeCreate
	if c.store.Role(ctx) == session.RoleAuthorized {
		path = routes.LeaveAuthorizedCreate
	}
	return c.post(ctx, path, req)
}

// Act applies approve, reject or cancel to leave request id.
func (c *Client) Act(ctx context.Context, id, action string) (json.RawMessage, error) {
	switch action {
	case ActionCancel:
		return c.post(ctx, routes.LeaveCancel(id), nil)
	case ActionApprove, ActionReject:
		return c.post(ctx, routes.LeaveAction(id, action), nil)
	default:
		return nil, fmt.Errorf("unknown leave action %q", action)
	}
}

func (c *Client) ApproveLeave(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Act(ctx, id, ActionApprove)
}

func (c *Client) RejectLeave(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Act(ctx, id, ActionReject)
}

func (c *Client) CancelLeave(ctx context.Context, id string) (json.RawMessage, error) {
	return c.Act(ctx, id, ActionCancel)
}
