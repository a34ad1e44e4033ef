package tracker

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/jobpilot/internal/types"
)

const (
	applicationsSheet = "Applications"
	summarySheet      = "Summary"
)

var exportHeaders = []string{
	"ID", "Company", "Title", "Location", "Status", "ATS Score", "Source",
	"Discovered", "Applied", "Follow Up", "Keywords Missing", "URL", "Resume", "Notes",
}

// ExportXLSX writes the applications, and a summary sheet when stats is non-nil,
// as an Excel workbook.
func ExportXLSX(w io.Writer, apps []types.Application, stats *types.ApplicationStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", applicationsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeApplicationsSheet(f, apps); err != nil {
		return fmt.Errorf("failed to create applications sheet: %w", err)
	}
	if stats != nil {
		if _, err := f.NewSheet(summarySheet); err != nil {
			return fmt.Errorf("failed to add summary sheet: %w", err)
		}
		if err := writeSummarySheet(f, stats); err != nil {
			return fmt.Errorf("failed to create summary sheet: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
}

func writeApplicationsSheet(f *excelize.File, apps []types.Application) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(applicationsSheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(applicationsSheet, "A1", last, style); err != nil {
		return err
	}

	for i, app := range apps {
		row := []any{
			app.ID, app.Company, app.Title, app.Location, string(app.Status),
			fmt.Sprintf("%.0f%%", app.ATSScore*100), app.Source,
			formatDate(app.DateDiscovered), formatDate(app.DateApplied), formatDate(app.FollowUpDate),
			strings.Join(app.KeywordsMissing, ", "), app.URL, app.ResumePath, app.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(applicationsSheet, cell, &row); err != nil {
			return err
		}
	}

	widths := map[string]float64{"A": 6, "B": 24, "C": 30, "D": 18, "E": 14, "F": 10, "G": 10, "K": 40, "L": 40, "M": 40, "N": 50}
	for col, width := range widths {
		if err := f.SetColWidth(applicationsSheet, col, col, width); err != nil {
			return err
		}
	}
	return f.SetPanes(applicationsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummarySheet(f *excelize.File, stats *types.ApplicationStats) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Total Applications", stats.Total},
		{"Average ATS Score", fmt.Sprintf("%.0f%%", stats.AvgATSScore*100)},
	}
	for _, status := range types.ApplicationStatuses {
		if n := stats.ByStatus[status]; n > 0 {
			rows = append(rows, []any{string(status), n})
		}
	}
	for i, row := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", style); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 24)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
