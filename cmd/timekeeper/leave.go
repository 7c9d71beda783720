package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/timekeeper/client/internal/api"
)

var (
	allLeaves   bool
	leaveStart  string
	leaveEnd    string
	leaveReason string
	leaveFor    int64
)

var leavesCmd = &cobra.Command{
	Use:   "leaves",
	Short: "List leave requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list := (*api.Client).MyLeaves
		if allLeaves {
			list = (*api.Client).AllLeaves
		}
		return call(cmd, list, renderLeaves)
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Create or decide leave requests",
}

var leaveCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "File a leave request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := api.LeaveRequest{Employee: leaveFor, StartDate: leaveStart, EndDate: leaveEnd, Reason: leaveReason}
		return call(cmd, func(c *api.Client, ctx context.Context) (json.RawMessage, error) {
			return c.CreateLeave(ctx, req)
		}, func(w io.Writer, payload json.RawMessage) error {
			doc := gjson.ParseBytes(payload)
			_, err := fmt.Fprintf(w, "Leave request %s filed for %s to %s (%s).\n",
				doc.Get("id").String(), doc.Get("start_date").String(), doc.Get("end_date").String(), doc.Get("status").String())
			return err
		})
	},
}

func leaveActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, func(c *api.Client, ctx context.Context) (json.RawMessage, error) {
				return c.Act(ctx, args[0], action)
			}, renderMessage)
		},
	}
}

func init() {
	leavesCmd.Flags().BoolVar(&allLeaves, "all", false, "List every employee's requests (authorized only)")

	leaveCreateCmd.Flags().StringVar(&leaveStart, "start", "", "First day, YYYY-MM-DD")
	leaveCreateCmd.Flags().StringVar(&leaveEnd, "end", "", "Last day, YYYY-MM-DD")
	leaveCreateCmd.Flags().StringVar(&leaveReason, "reason", "", "Reason")
	leaveCreateCmd.Flags().Int64Var(&leaveFor, "employee", 0, "Employee id to file for (authorized only)")
	leaveCreateCmd.MarkFlagRequired("start")
	leaveCreateCmd.MarkFlagRequired("end")

	leaveCmd.AddCommand(leaveCreateCmd,
		leaveActionCmd(api.ActionApprove, "Approve a pending request"),
		leaveActionCmd(api.ActionReject, "Reject a pending request"),
		leaveActionCmd(api.ActionCancel, "Cancel a pending request"),
	)
}

func renderLeaves(w io.Writer, payload json.RawMessage) error {
	rows := gjson.ParseBytes(payload).Array()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No leave requests.")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Employee", "From", "To", "Status", "Reason")
	for _, r := range rows {
		t.Row(r.Get("id").String(), r.Get("employee_name").String(), r.Get("start_date").String(),
			r.Get("end_date").String(), r.Get("status").String(), r.Get("reason").String())
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
