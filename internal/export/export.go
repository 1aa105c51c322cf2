// Package export writes verification outcomes to CSV and Excel.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kremlit/email-enricher/internal/domain"
)

// availableColumns maps export column names to value extractors.
func availableColumns() map[string]func(o *domain.VerificationOutcome) string {
	return map[string]func(o *domain.VerificationOutcome) string{
		"First Name":       func(o *domain.VerificationOutcome) string { return o.FirstName },
		"Last Name":        func(o *domain.VerificationOutcome) string { return o.LastName },
		"Full Name":        func(o *domain.VerificationOutcome) string { return o.FullName },
		"Company":          func(o *domain.VerificationOutcome) string { return o.Company },
		"Email":            func(o *domain.VerificationOutcome) string { return o.Email },
		"Status":           func(o *domain.VerificationOutcome) string { return o.Status },
		"Attempt":          func(o *domain.VerificationOutcome) string { return fmt.Sprintf("%d", o.AttemptIndex) },
		"Candidates Tried": func(o *domain.VerificationOutcome) string { return strings.Join(o.CandidatesTried, ", ") },
		"Calls Saved":      func(o *domain.VerificationOutcome) string { return fmt.Sprintf("%d", o.CallsSaved()) },
	}
}

// DefaultColumns is the export column order used when the caller does
// not pick its own.
var DefaultColumns = []string{
	"First Name", "Last Name", "Company", "Email", "Status", "Attempt", "Calls Saved",
}

// SelectColumns validates a comma-separated column request against the
// available set, falling back to DefaultColumns.
func SelectColumns(colsParam string) []string {
	available := availableColumns()

	var selected []string

	for _, col := range strings.Split(colsParam, ",") {
		col = strings.TrimSpace(col)
		if _, ok := available[col]; ok {
			selected = append(selected, col)
		}
	}

	if len(selected) == 0 {
		return DefaultColumns
	}

	return selected
}

// WriteCSV streams outcomes as CSV with the given columns.
func WriteCSV(w io.Writer, outcomes []*domain.VerificationOutcome, columns []string) error {
	available := availableColumns()

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, o := range outcomes {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = available[col](o)
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}

// WriteXLSX writes outcomes as a styled Excel workbook.
func WriteXLSX(w io.Writer, outcomes []*domain.VerificationOutcome, columns []string) error {
	available := availableColumns()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Outcomes"
	f.SetSheetName("Sheet1", sheetName)

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	lastCol, _ := excelize.CoordinatesToCellName(len(columns), 1)
	f.SetCellStyle(sheetName, "A1", lastCol, headerStyle)

	rowNum := 2

	for _, o := range outcomes {
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
			f.SetCellValue(sheetName, cell, available[col](o))
		}
		rowNum++
	}

	for i := range columns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 18)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}
