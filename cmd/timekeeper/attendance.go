package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/timekeeper/client/internal/api"
	"github.com/timekeeper/client/internal/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's attendance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, (*api.Client).AttendanceStatus, renderStatus)
	},
}

var checkInCmd = &cobra.Command{
	Use:   "check-in",
	Short: "Record a check-in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, (*api.Client).CheckIn, renderMessage)
	},
}

var checkOutCmd = &cobra.Command{
	Use:   "check-out",
	Short: "Record a check-out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, (*api.Client).CheckOut, renderMessage)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <year> <month>",
	Short: "Show the monthly attendance report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[0])
		}
		month, err := strconv.Atoi(args[1])
		if err != nil || month < 1 || month > 12 {
			return fmt.Errorf("invalid month %q", args[1])
		}

		d, err := setup(nil)
		if err != nil {
			return err
		}
		defer d.log.Sync()

		payload, err := d.api.MonthlyReport(cmd.Context(), year, month)
		if err != nil {
			return err
		}
		if rawJSON {
			_, err := cmd.OutOrStdout().Write(payload)
			return err
		}
		style := "dark"
		if d.store.Theme(cmd.Context()) == theme.Light {
			style = "light"
		}
		r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(120))
		if err != nil {
			return err
		}
		out, err := r.Render(reportMarkdown(payload))
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	},
}

func renderStatus(w io.Writer, payload json.RawMessage) error {
	doc := gjson.ParseBytes(payload)
	fmt.Fprintf(w, "Status:     %s\n", strings.ReplaceAll(doc.Get("status").String(), "_", " "))
	fmt.Fprintf(w, "Check-ins:  %d\n", len(doc.Get("check_ins").Array()))
	fmt.Fprintf(w, "Check-outs: %d\n", len(doc.Get("check_outs").Array()))
	fmt.Fprintf(w, "Lateness:   %d min\n", doc.Get("lateness").Int())
	fmt.Fprintf(w, "Worked:     %d min\n", doc.Get("work_minutes").Int())
	if v := doc.Get("remaining_leave"); v.Exists() {
		fmt.Fprintf(w, "Leave left: %s days\n", v.String())
	}
	return nil
}

// renderMessage prints the server's confirmation.
func renderMessage(w io.Writer, payload json.RawMessage) error {
	msg := gjson.GetBytes(payload, "message").String()
	if msg == "" {
		msg = "Done."
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

// reportMarkdown lays the monthly report out as a markdown table.
func reportMarkdown(payload json.RawMessage) string {
	doc := gjson.ParseBytes(payload)
	var b strings.Builder
	fmt.Fprintf(&b, "# Attendance %04d-%02d\n\n", doc.Get("year").Int(), doc.Get("month").Int())
	b.WriteString("| Employee | Days present | Worked | Late (min) | Leave days |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	rows := doc.Get("employees").Array()
	for _, r := range rows {
		worked := r.Get("work_minutes").Int()
		fmt.Fprintf(&b, "| %s | %d | %dh %dm | %d | %s |\n",
			r.Get("username").String(), r.Get("days_present").Int(),
			worked/60, worked%60, r.Get("lateness_minutes").Int(), r.Get("leave_days").String())
	}
	if len(rows) == 0 {
		b.WriteString("\n_No employees._\n")
	}
	return b.String()
}
