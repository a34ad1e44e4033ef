package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/observability"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/types"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Tailor the master resume to a job posting",
	Long: `Generate suggestions for a posting, review them interactively, then render the resume and
record the application. With --auto every suggestion is accepted as proposed.`,
	RunE: runTailor,
}

func init() {
	addJobFlags(tailorCmd)
	tailorCmd.Flags().String("user", "", "Profile user id (default profile when empty)")
	tailorCmd.Flags().Bool("auto", false, "Accept every suggestion without review")
	rootCmd.AddCommand(tailorCmd)
}

// progressPrinter prints one line per pipeline step.
func progressPrinter(out io.Writer) pipeline.ProgressCallback {
	return func(ev pipeline.ProgressEvent) {
		fmt.Fprintf(out, "✓ %s\n", ev.Message)
	}
}

func runTailor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	in, err := jobInput(cmd)
	if err != nil {
		return err
	}
	userID, _ := cmd.Flags().GetString("user")
	auto, _ := cmd.Flags().GetBool("auto")
	out := cmd.OutOrStdout()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.withTracker(ctx); err != nil {
		return err
	}
	if err := a.withService(ctx, progressPrinter(out)); err != nil {
		return err
	}

	res, err := tailor(cmd, a, pipeline.SuggestRequest{Job: in, UserID: userID}, auto, terminalPrompter{})
	if err != nil || res == nil {
		return err
	}

	printer := observability.NewPrinter(out)
	printer.PrintCoverage(res.Coverage)
	printer.PrintFiles(res.Files)
	fmt.Fprintf(out, "Tracked as application #%d\n", res.ApplicationID)
	return nil
}

// tailor runs suggest, the review and finalize. A nil result without error means the user
// stopped before finalizing.
func tailor(cmd *cobra.Command, a *app, req pipeline.SuggestRequest, auto bool, p prompter) (*pipeline.FinalizeResult, error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	suggested, err := a.svc.Suggest(ctx, req)
	if err != nil {
		return nil, err
	}
	bundle := suggested.Suggestions
	observability.NewPrinter(out).PrintBundleSummary(bundle)

	dup, err := a.tracker.IsDuplicate(ctx, bundle.Job.Company, bundle.Job.Title)
	if err != nil {
		a.log.Warn("duplicate check failed", zap.Error(err))
	}
	if dup {
		fmt.Fprintf(out, "⚠ %s at %s is already tracked\n", bundle.Job.Title, bundle.Job.Company)
		if !auto {
			choice, err := p.Select("Continue anyway?", []string{"Yes", "No"})
			if err != nil {
				return nil, err
			}
			if choice != "Yes" {
				return nil, nil
			}
		}
	}

	var edits types.EditSet
	if !auto {
		r := &reviewer{prompt: p, out: out}
		if edits, err = r.Review(bundle); err != nil {
			return nil, err
		}
	}

	return a.svc.Finalize(ctx, pipeline.FinalizeRequest{
		SessionID: suggested.SessionID,
		Edits:     edits,
		Source:    "cli",
	})
}
