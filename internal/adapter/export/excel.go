// Package export writes match results to spreadsheets.
package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"resumematch/internal/domain"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
)

var now = time.Now

// WriteMatches saves a ranking as an .xlsx workbook with a summary sheet and
// a colour-banded candidate sheet. The extension is added when missing.
func WriteMatches(report domain.MatchReport, jobText, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return "", err
	}

	if err := writeSummary(f, report, jobText); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeCandidates(f, report.Results); err != nil {
		return "", fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return outputPath, nil
}

func writeSummary(f *excelize.File, report domain.MatchReport, jobText string) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 80); err != nil {
		return err
	}

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	rows := [][2]any{
		{"Generated:", now().Format("2006-01-02 15:04:05")},
		{"Candidates Ranked:", len(report.Results)},
		{"Average Score:", fmt.Sprintf("%.1f", averagePercent(report.Results))},
		{"Key Terms:", strings.Join(report.KeyTerms, ", ")},
		{"Job Description:", strings.TrimSpace(jobText)},
	}
	for i, r := range rows {
		row := i + 1
		label := fmt.Sprintf("A%d", row)
		value := fmt.Sprintf("B%d", row)
		if err := f.SetCellValue(summarySheet, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, label, label, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, value, r[1]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, value, value, wrapStyle); err != nil {
			return err
		}
	}
	return nil
}

func writeCandidates(f *excelize.File, results []domain.MatchResult) error {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return err
	}

	bands := []struct {
		min   float64
		color string
		style int
	}{
		{90, "C6EFCE", 0},
		{70, "FFEB9C", 0},
		{50, "FFC7CE", 0},
		{0, "FF9999", 0},
	}
	for i := range bands {
		bands[i].style, err = f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{bands[i].color}, Pattern: 1},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border:    border,
		})
		if err != nil {
			return err
		}
	}

	metaKeys := metadataKeys(results)
	headers := append([]string{"Rank", "Profile ID", "Score", "Summary"}, metaKeys...)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(candidatesSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(candidatesSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(candidatesSheet, "B", "B", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(candidatesSheet, "D", "D", 70); err != nil {
		return err
	}

	for i, r := range results {
		row := i + 2
		values := []any{i + 1, r.ProfileID, fmt.Sprintf("%.1f", r.Score*100), r.Summary}
		for _, k := range metaKeys {
			values = append(values, r.Metadata[k])
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetSheetRow(candidatesSheet, first, &values); err != nil {
			return err
		}

		style := bands[len(bands)-1].style
		for _, b := range bands {
			if r.Score*100 >= b.min {
				style = b.style
				break
			}
		}
		if err := f.SetCellStyle(candidatesSheet, first, last, style); err != nil {
			return err
		}
	}

	return f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func metadataKeys(results []domain.MatchResult) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, r := range results {
		for k := range r.Metadata {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func averagePercent(results []domain.MatchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var total float64
	for _, r := range results {
		total += r.Score
	}
	return total / float64(len(results)) * 100
}
