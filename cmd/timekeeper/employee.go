package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/timekeeper/client/internal/api"
)

var overview bool

var balanceCmd = &cobra.Command{
	Use:   "balance [employee-id change]",
	Short: "Show your leave balance, or adjust an employee's (authorized only)",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return call(cmd, (*api.Client).RemainingLeave, func(w io.Writer, payload json.RawMessage) error {
				doc := gjson.ParseBytes(payload)
				_, err := fmt.Fprintf(w, "%s of %d days left (%s)\n",
					doc.Get("remaining_leave").String(), doc.Get("annual_leave").Int(),
					doc.Get("remaining_leave_display").String())
				return err
			})
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid employee id %q", args[0])
		}
		change, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid change %q", args[1])
		}
		return call(cmd, func(c *api.Client, ctx context.Context) (json.RawMessage, error) {
			return c.UpdateLeaveBalance(ctx, id, change)
		}, renderMessage)
	},
}

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "List employees (authorized only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if overview {
			return call(cmd, (*api.Client).EmployeeOverview, renderOverview)
		}
		return call(cmd, (*api.Client).Employees, func(w io.Writer, payload json.RawMessage) error {
			for _, r := range gjson.ParseBytes(payload).Array() {
				fmt.Fprintf(w, "%4d  %s\n", r.Get("id").Int(), r.Get("username").String())
			}
			return nil
		})
	},
}

func init() {
	employeesCmd.Flags().BoolVar(&overview, "overview", false, "Show today's attendance for every employee")
}

func renderOverview(w io.Writer, payload json.RawMessage) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Employee", "Status", "Last action", "Late", "Worked", "Leave left")
	for _, r := range gjson.ParseBytes(payload).Array() {
		t.Row(r.Get("id").String(), r.Get("username").String(), r.Get("status").String(),
			r.Get("last_action_time").String(), r.Get("lateness").String(),
			r.Get("work_duration").String(), r.Get("remaining_leave").String())
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
