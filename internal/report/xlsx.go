package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tcrun/internal/runner"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultHeaders = []string{"File", "Test Name", "Method", "URL", "HTTP Status", "Status", "Duration (ms)", "Prerequisites", "Error"}

// WriteXLSX stores result as a workbook with a results and a summary sheet.
func WriteXLSX(path string, result runner.SuiteResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, h := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(resultsSheet, cell, h)
		f.SetCellStyle(resultsSheet, cell, cell, styles.header)
	}
	f.SetColWidth(resultsSheet, "A", "A", 30)
	f.SetColWidth(resultsSheet, "B", "B", 30)
	f.SetColWidth(resultsSheet, "D", "D", 50)
	f.SetColWidth(resultsSheet, "H", "H", 30)
	f.SetColWidth(resultsSheet, "I", "I", 80)

	row := 2
	for _, file := range result.Files {
		if file.Error != "" {
			writeRow(f, row, []any{file.File, "", "", "", "", string(runner.StatusError), "", "", file.Error})
			f.SetCellStyle(resultsSheet, cellName(6, row), cellName(6, row), styles.errored)
			row++
			continue
		}
		for _, c := range file.Cases {
			var status any
			if c.HTTPStatus != 0 {
				status = c.HTTPStatus
			}
			writeRow(f, row, []any{
				c.File, c.TestName, c.Method, c.URL, status, string(c.Status),
				c.Duration.Milliseconds(), strings.Join(c.Prerequisites, ", "), c.Error,
			})
			f.SetCellStyle(resultsSheet, cellName(6, row), cellName(6, row), styles.forStatus(c.Status))
			row++
		}
	}

	summary := [][]any{
		{"Started", result.Start.Format(time.RFC3339)},
		{"Finished", result.End.Format(time.RFC3339)},
		{"Duration (ms)", result.Duration.Milliseconds()},
		{"Files", len(result.Files)},
		{"Total", result.Total},
		{"Passed", result.Passed},
		{"Failed", result.Failed},
		{"Errors", result.Errored},
	}
	f.SetColWidth(summarySheet, "A", "A", 20)
	f.SetColWidth(summarySheet, "B", "B", 30)
	for i, kv := range summary {
		f.SetCellValue(summarySheet, cellName(1, i+1), kv[0])
		f.SetCellStyle(summarySheet, cellName(1, i+1), cellName(1, i+1), styles.header)
		f.SetCellValue(summarySheet, cellName(2, i+1), kv[1])
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

type xlsxStyles struct {
	header, passed, failed, errored int
}

func (s xlsxStyles) forStatus(st runner.Status) int {
	switch st {
	case runner.StatusPassed:
		return s.passed
	case runner.StatusFailed:
		return s.failed
	default:
		return s.errored
	}
}

func newStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	fill := func(color string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
	}
	if s.passed, err = fill("#C6EFCE"); err != nil {
		return s, fmt.Errorf("failed to create status style: %w", err)
	}
	if s.failed, err = fill("#FFC7CE"); err != nil {
		return s, fmt.Errorf("failed to create status style: %w", err)
	}
	if s.errored, err = fill("#FFEB9C"); err != nil {
		return s, fmt.Errorf("failed to create status style: %w", err)
	}
	return s, nil
}

func writeRow(f *excelize.File, row int, values []any) {
	for i, v := range values {
		if v == nil {
			continue
		}
		f.SetCellValue(resultsSheet, cellName(i+1, row), v)
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
