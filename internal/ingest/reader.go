// Package ingest reads contact rows out of CSV and Excel files and maps
// messy real-world headers onto the fields the enricher needs.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kremlit/email-enricher/internal/domain"
)

var (
	ErrEmptyFile         = errors.New("file contains no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrColumnsNotFound   = errors.New("required columns not found")
)

// Table is a parsed spreadsheet: one header row plus data rows. Rows may
// be ragged; missing trailing cells read as "".
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns all values of column i, one per data row.
func (t *Table) Column(i int) []string {
	values := make([]string, 0, len(t.Rows))

	for _, row := range t.Rows {
		values = append(values, t.cell(row, i))
	}

	return values
}

func (t *Table) cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}

	return row[i]
}

// ReadCSV parses CSV data into a Table.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, ErrEmptyFile
	}

	return &Table{Headers: records[0], Rows: records[1:]}, nil
}

// ReadXLSX parses the first sheet of an Excel workbook into a Table.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	return &Table{Headers: rows[0], Rows: rows[1:]}, nil
}

// ReadFile parses a file by extension (.csv, .xlsx, .xls).
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".xlsx", ".xls":
		return ReadXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Contacts converts table rows into contacts using the detected column
// mapping. When only a full-name column exists, the first token becomes
// the first name and the remainder the last name. Blank rows survive
// here; completeness filtering happens at batch creation.
func Contacts(t *Table, m Mapping) ([]domain.Contact, error) {
	if !m.Resolved() {
		return nil, ErrColumnsNotFound
	}

	urlIdx := m[FieldCompanyURL].Index
	firstIdx := m[FieldFirstName].Index
	lastIdx := m[FieldLastName].Index
	fullIdx := m[FieldFullName].Index

	useSplitName := firstIdx < 0 || lastIdx < 0

	contacts := make([]domain.Contact, 0, len(t.Rows))

	for _, row := range t.Rows {
		var c domain.Contact

		c.CompanyURL = strings.TrimSpace(t.cell(row, urlIdx))

		if useSplitName {
			c.FirstName, c.LastName = splitFullName(t.cell(row, fullIdx))
		} else {
			c.FirstName = strings.TrimSpace(t.cell(row, firstIdx))
			c.LastName = strings.TrimSpace(t.cell(row, lastIdx))
		}

		contacts = append(contacts, c)
	}

	return contacts, nil
}

func splitFullName(full string) (first, last string) {
	parts := strings.Fields(full)

	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
