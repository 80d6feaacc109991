package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"resumematch/internal/domain"
)

func TestWriteMatches(t *testing.T) {
	now = func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	report := domain.MatchReport{
		KeyTerms: []string{"Go", "Kubernetes"},
		Results: []domain.MatchResult{
			{ProfileID: "a", Summary: "Senior backend engineer", Score: 0.92, Metadata: domain.Metadata{"name": "Ada"}},
			{ProfileID: "b", Summary: "Junior designer", Score: 0.15, Metadata: domain.Metadata{"location": "Oslo"}},
		},
	}

	path, err := WriteMatches(report, "Backend engineer with Kubernetes", filepath.Join(t.TempDir(), "matches"))
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, candidatesSheet}, f.GetSheetList())

	v, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01 09:30:00", v)
	v, _ = f.GetCellValue(summarySheet, "B4")
	assert.Equal(t, "Go, Kubernetes", v)
	v, _ = f.GetCellValue(summarySheet, "B3")
	assert.Equal(t, "53.5", v)

	rows, err := f.GetRows(candidatesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Rank", "Profile ID", "Score", "Summary", "location", "name"}, rows[0])
	assert.Equal(t, []string{"1", "a", "92.0", "Senior backend engineer", "", "Ada"}, rows[1])
	assert.Equal(t, []string{"2", "b", "15.0", "Junior designer", "Oslo"}, rows[2])
}

func TestWriteMatchesEmpty(t *testing.T) {
	path, err := WriteMatches(domain.MatchReport{}, "job", filepath.Join(t.TempDir(), "empty.xlsx"))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(candidatesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
