package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/shqear93/rbzk"
	"github.com/spf13/cobra"
)

// filterAttendance is the peripheral date-filtering glue named in spec.md
// §1: the protocol engine hands back every downloaded record, and the CLI
// narrows the already-downloaded slice locally rather than asking the
// device to filter.
func filterAttendance(records []rbzk.Attendance, start, end time.Time, limit int) []rbzk.Attendance {
	out := make([]rbzk.Attendance, 0, len(records))
	for _, r := range records {
		if !start.IsZero() && r.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func renderAttendance(records []rbzk.Attendance) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"UID", "User ID", "Timestamp", "When", "Status", "Punch"})
	for _, r := range records {
		table.Append([]string{
			fmt.Sprintf("%d", r.UID),
			r.UserID,
			r.Timestamp.Format(time.RFC3339),
			humanize.Time(r.Timestamp),
			fmt.Sprintf("%d", r.Status),
			fmt.Sprintf("%d", r.Punch),
		})
	}
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Render()
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show attendance records, optionally filtered by date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		today, _ := cmd.Flags().GetBool("today")
		yesterday, _ := cmd.Flags().GetBool("yesterday")
		week, _ := cmd.Flags().GetBool("week")
		month, _ := cmd.Flags().GetBool("month")
		startFlag, _ := cmd.Flags().GetString("start-date")
		endFlag, _ := cmd.Flags().GetString("end-date")
		limit, _ := cmd.Flags().GetInt("limit")

		now := time.Now()
		var start, end time.Time
		switch {
		case today:
			start, end = dayBounds(now)
		case yesterday:
			start, end = dayBounds(now.AddDate(0, 0, -1))
		case week:
			start, end = now.AddDate(0, 0, -7), now
		case month:
			start, end = now.AddDate(0, -1, 0), now
		}
		if startFlag != "" {
			t, err := time.Parse("2006-01-02", startFlag)
			if err != nil {
				return fmt.Errorf("invalid --start-date: %w", err)
			}
			start = t
		}
		if endFlag != "" {
			t, err := time.Parse("2006-01-02", endFlag)
			if err != nil {
				return fmt.Errorf("invalid --end-date: %w", err)
			}
			end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}

		return withClient(func(zk *rbzk.ZK) error {
			records, err := zk.GetAttendance()
			if err != nil {
				return err
			}
			renderAttendance(filterAttendance(records, start, end, limit))
			return nil
		})
	},
}

func init() {
	flags := logsCmd.Flags()
	flags.Bool("today", false, "only records from today")
	flags.Bool("yesterday", false, "only records from yesterday")
	flags.Bool("week", false, "only records from the last 7 days")
	flags.Bool("month", false, "only records from the last month")
	flags.String("start-date", "", "only records on/after this date (YYYY-MM-DD)")
	flags.String("end-date", "", "only records on/before this date (YYYY-MM-DD)")
	flags.Int("limit", 0, "keep only the most recent N records (0 = unlimited)")
}

var logsAllCmd = &cobra.Command{
	Use:   "logs-all",
	Short: "Show every attendance record on the device, unfiltered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			records, err := zk.GetAttendance()
			if err != nil {
				return err
			}
			renderAttendance(records)
			return nil
		})
	},
}

var clearLogsCmd = &cobra.Command{
	Use:   "clear-logs",
	Short: "Erase the attendance log on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			return zk.ClearAttendance()
		})
	},
}
