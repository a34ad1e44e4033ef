package tracker

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/jobpilot/internal/types"
)

func TestExportXLSX(t *testing.T) {
	applied := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	apps := []types.Application{
		{ID: 2, Company: "Acme", Title: "Data Engineer", Status: types.StatusApplied, ATSScore: 0.82,
			KeywordsMissing: []string{"Airflow", "dbt"}, DateApplied: &applied},
		{ID: 1, Company: "Globex", Title: "SRE", Status: types.StatusDiscovered},
	}
	stats := NewStats(map[types.ApplicationStatus]int{types.StatusApplied: 1, types.StatusDiscovered: 1}, 0.82)

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, apps, stats))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Applications", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Applications")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Company", rows[0][1])
	assert.Equal(t, "Acme", rows[1][1])
	assert.Equal(t, "82%", rows[1][5])
	assert.Equal(t, "2025-03-04", rows[1][8])
	assert.Equal(t, "Airflow, dbt", rows[1][10])
	assert.Equal(t, "Globex", rows[2][1])

	total, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}

func TestExportXLSX_NoStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Applications"}, f.GetSheetList())
}
