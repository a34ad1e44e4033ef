// Package observability provides box-formatted dashboard output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(clip(line, boxWidth-4), boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to n runes, ending in "..." when cut.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func pad(s string, n int) string {
	if w := utf8.RuneCountInString(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

// writeList writes up to limit items as bullets with an overflow line.
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s\n", heading)
	for _, item := range items[:min(len(items), limit)] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

// PrintJob outputs a human-readable summary of a parsed posting.
func (p *Printer) PrintJob(job *types.ParsedJob) {
	if job == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company:   %s\n", job.Company)
	fmt.Fprintf(&sb, "Role:      %s\n", job.Title)
	if job.Location != "" {
		fmt.Fprintf(&sb, "Location:  %s\n", job.Location)
	}
	if job.Seniority != "" {
		fmt.Fprintf(&sb, "Seniority: %s\n", job.Seniority)
	}
	sb.WriteString("\n")

	writeList(&sb, "Required Skills:", job.RequiredSkills, maxItemsToShow)
	writeList(&sb, "Preferred:", job.PreferredSkills, 3)
	if len(job.TechStack) > 0 {
		fmt.Fprintf(&sb, "Tech Stack: %s\n", strings.Join(job.TechStack, ", "))
	}

	p.printBox("PARSED JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCoverage outputs the keyword coverage of a finalized resume.
func (p *Printer) PrintCoverage(report types.CoverageReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ATS Score: %.0f%% (%d/%d keywords)\n", report.OverallScore*100, report.TotalMatched, report.TotalKeywords)
	fmt.Fprintf(&sb, "Required:  %.0f%%\n", report.RequiredSkillsScore*100)
	if report.Recommendation != "" {
		fmt.Fprintf(&sb, "%s\n", report.Recommendation)
	}

	categories := []struct {
		name             string
		matched, missing []string
	}{
		{"Required", report.MatchedRequired, report.MissingRequired},
		{"Preferred", report.MatchedPreferred, report.MissingPreferred},
		{"Tech", report.MatchedTech, report.MissingTech},
	}
	for _, c := range categories {
		if len(c.matched)+len(c.missing) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %d/%d\n", c.name, len(c.matched), len(c.matched)+len(c.missing))
		if len(c.matched) > 0 {
			fmt.Fprintf(&sb, "  ✓ %s\n", strings.Join(c.matched, ", "))
		}
		if len(c.missing) > 0 {
			fmt.Fprintf(&sb, "  ✗ %s\n", strings.Join(c.missing, ", "))
		}
	}

	p.printBox("KEYWORD COVERAGE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBundleSummary outputs the selected experiences and projects of a suggestion bundle.
func (p *Printer) PrintBundleSummary(bundle *types.SuggestionBundle) {
	if bundle == nil {
		return
	}

	exps, projs := bundle.SelectedCount()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s @ %s\n", bundle.Job.Title, bundle.Job.Company)
	fmt.Fprintf(&sb, "Experiences: %d/%d selected\n", exps, len(bundle.Experiences))
	fmt.Fprintf(&sb, "Projects:    %d/%d selected\n\n", projs, len(bundle.Projects))

	for _, e := range bundle.Experiences {
		mark := " "
		if e.Selected {
			mark = "✓"
		}
		revised := 0
		for _, b := range e.Bullets {
			if b.Action == types.BulletRevise {
				revised++
			}
		}
		fmt.Fprintf(&sb, "[%s] %2d  %s @ %s (%d revised)\n", mark, e.RelevanceScore, e.Title, e.Company, revised)
	}
	for _, pr := range bundle.Projects {
		mark := " "
		if pr.Selected {
			mark = "✓"
		}
		fmt.Fprintf(&sb, "[%s] %2d  %s\n", mark, pr.RelevanceScore, pr.Title)
	}

	if len(bundle.KeywordSuggestions) > 0 {
		keywords := make([]string, 0, len(bundle.KeywordSuggestions))
		for _, k := range bundle.KeywordSuggestions {
			keywords = append(keywords, k.Keyword)
		}
		fmt.Fprintf(&sb, "\nKeyword hints: %s\n", strings.Join(keywords, ", "))
	}

	p.printBox("SUGGESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFiles lists the files written by finalize.
func (p *Printer) PrintFiles(files []pipeline.Artifact) {
	if len(files) == 0 {
		return
	}
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "%-12s %s\n", f.Kind, f.Path)
		if f.Pages > 0 {
			fmt.Fprintf(&sb, "             %d page(s)\n", f.Pages)
		}
		if f.Warning != "" {
			fmt.Fprintf(&sb, "  ⚠ %s\n", f.Warning)
		}
	}
	p.printBox("OUTPUT FILES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStats outputs the application dashboard totals.
func (p *Printer) PrintStats(stats *types.ApplicationStats) {
	if stats == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total Applications: %d\n", stats.Total)
	if stats.AvgATSScore > 0 {
		fmt.Fprintf(&sb, "Average ATS Score:  %.0f%%\n", stats.AvgATSScore*100)
	}
	if len(stats.ByStatus) > 0 {
		sb.WriteString("\nBy Status:\n")
		for _, status := range types.ApplicationStatuses {
			if n := stats.ByStatus[status]; n > 0 {
				fmt.Fprintf(&sb, "  %-14s %d\n", status, n)
			}
		}
	}
	p.printBox("APPLICATION DASHBOARD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintApplications lists applications, at most limit rows.
func (p *Printer) PrintApplications(apps []types.Application, limit int) {
	if len(apps) == 0 {
		p.printBox("APPLICATIONS", "No applications tracked yet")
		return
	}
	if limit <= 0 {
		limit = len(apps)
	}
	var sb strings.Builder
	for _, a := range apps[:min(len(apps), limit)] {
		score := "N/A"
		if a.ATSScore > 0 {
			score = fmt.Sprintf("%.0f%%", a.ATSScore*100)
		}
		fmt.Fprintf(&sb, "#%-3d [%s] %s @ %s  ATS: %s\n", a.ID, a.Status, clip(a.Title, 18), clip(a.Company, 12), score)
	}
	if len(apps) > limit {
		fmt.Fprintf(&sb, "... and %d more\n", len(apps)-limit)
	}
	p.printBox("APPLICATIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFollowUps outputs applications with a due follow-up.
func (p *Printer) PrintFollowUps(apps []types.Application) {
	if len(apps) == 0 {
		p.printBox("FOLLOW-UPS", "✅ Nothing due")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pending follow-ups: %d\n\n", len(apps))
	for _, a := range apps {
		applied := "N/A"
		if a.DateApplied != nil {
			applied = a.DateApplied.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, "- #%d %s @ %s (applied: %s)\n", a.ID, a.Title, a.Company, applied)
	}
	p.printBox("FOLLOW-UPS", strings.TrimSuffix(sb.String(), "\n"))
}
