package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpilot/internal/observability"
	"github.com/jonathan/jobpilot/internal/tracker"
	"github.com/jonathan/jobpilot/internal/types"
)

var applicationsCmd = &cobra.Command{
	Use:     "applications",
	Aliases: []string{"apps"},
	Short:   "Inspect and update tracked applications",
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications, newest first",
	Args:  cobra.NoArgs,
	RunE: withTrackerCmd(func(cmd *cobra.Command, a *app, _ []string) error {
		raw, _ := cmd.Flags().GetString("status")
		status := types.ApplicationStatus(raw)
		if status != "" && !status.Valid() {
			return fmt.Errorf("unknown status %q", raw)
		}
		apps, err := a.tracker.List(cmd.Context(), status)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		observability.NewPrinter(cmd.OutOrStdout()).PrintApplications(apps, limit)
		return nil
	}),
}

var appsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals and rates across applications",
	Args:  cobra.NoArgs,
	RunE: withTrackerCmd(func(cmd *cobra.Command, a *app, _ []string) error {
		stats, err := a.tracker.Stats(cmd.Context())
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintStats(stats)
		return nil
	}),
}

var appsFollowUpsCmd = &cobra.Command{
	Use:   "followups",
	Short: "List open applications due for a follow-up",
	Args:  cobra.NoArgs,
	RunE: withTrackerCmd(func(cmd *cobra.Command, a *app, _ []string) error {
		apps, err := a.tracker.FollowUps(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintFollowUps(apps)
		return nil
	}),
}

var appsStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move an application to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: withTrackerCmd(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		notes, _ := cmd.Flags().GetString("notes")
		updated, err := a.tracker.UpdateStatus(cmd.Context(), id, types.ApplicationStatus(args[1]), notes)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "#%d %s at %s is now %s\n", updated.ID, updated.Title, updated.Company, updated.Status)
		return nil
	}),
}

var appsFollowUpCmd = &cobra.Command{
	Use:   "followup <id>",
	Short: "Schedule a follow-up for an application",
	Args:  cobra.ExactArgs(1),
	RunE: withTrackerCmd(func(cmd *cobra.Command, a *app, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		updated, err := a.tracker.SetFollowUp(cmd.Context(), id, days)
		if err != nil {
			return err
		}
		if updated.FollowUpDate != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "#%d follow up on %s\n", updated.ID, updated.FollowUpDate.Format("2006-01-02"))
		}
		return nil
	}),
}

var appsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every application to an Excel workbook",
	Args:  cobra.NoArgs,
	RunE: withTrackerCmd(func(cmd *cobra.Command, a *app, _ []string) error {
		ctx := cmd.Context()
		apps, err := a.tracker.List(ctx, "")
		if err != nil {
			return err
		}
		stats, err := a.tracker.Stats(ctx)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("out")
		if path == "" {
			path = fmt.Sprintf("applications_%s.xlsx", time.Now().Format("20060102"))
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		if err := tracker.ExportXLSX(f, apps, stats); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d applications to %s\n", len(apps), path)
		return nil
	}),
}

func init() {
	appsListCmd.Flags().String("status", "", "Only list applications in this status")
	appsListCmd.Flags().Int("limit", 20, "Maximum rows to print")
	appsStatusCmd.Flags().String("notes", "", "Note appended to the application")
	appsFollowUpCmd.Flags().Int("days", 0, "Days from today (0 uses the default interval)")
	appsExportCmd.Flags().StringP("out", "o", "", "Output file (default applications_<date>.xlsx)")

	applicationsCmd.AddCommand(appsListCmd, appsStatsCmd, appsFollowUpsCmd, appsStatusCmd, appsFollowUpCmd, appsExportCmd)
	rootCmd.AddCommand(applicationsCmd)
}

// withTrackerCmd opens the tracker around fn.
func withTrackerCmd(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.withTracker(cmd.Context()); err != nil {
			return err
		}
		return fn(cmd, a, args)
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not an application id", raw)
	}
	return id, nil
}
