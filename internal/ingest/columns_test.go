package ingest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/ingest"
)

func TestDetectColumnsExactHeaders(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"firstname", "lastname", "companyURL"},
		Rows: [][]string{
			{"John", "Smith", "https://example.com"},
			{"Ann", "Carter", "acme.io"},
		},
	}

	m := ingest.DetectColumns(table)

	require.True(t, m.Resolved())
	assert.Equal(t, 0, m[ingest.FieldFirstName].Index)
	assert.Equal(t, 1, m[ingest.FieldLastName].Index)
	assert.Equal(t, 2, m[ingest.FieldCompanyURL].Index)
	assert.Equal(t, 90, m[ingest.FieldFirstName].Confidence)
}

func TestDetectColumnsMessyHeaders(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"Given Name ", "Surname", "Company Website", "E-Mail"},
		Rows: [][]string{
			{"John", "Smith", "https://example.com", "john@example.com"},
		},
	}

	m := ingest.DetectColumns(table)

	require.True(t, m.Resolved())
	assert.Equal(t, 1, m[ingest.FieldLastName].Index)
	assert.Equal(t, 2, m[ingest.FieldCompanyURL].Index)
	assert.Equal(t, 3, m[ingest.FieldEmail].Index)
}

func TestDetectColumnsByContent(t *testing.T) {
	// Headers are useless; content analysis must find the URL column.
	table := &ingest.Table{
		Headers: []string{"col_a", "col_b", "col_c"},
		Rows: [][]string{
			{"John Smith", "https://example.com", "x"},
			{"Ann Carter", "www.acme.io", "y"},
			{"Bob Miller Jr", "widgets.net", "z"},
		},
	}

	m := ingest.DetectColumns(table)

	assert.Equal(t, 1, m[ingest.FieldCompanyURL].Index)
	assert.Equal(t, 0, m[ingest.FieldFullName].Index)
	require.True(t, m.Resolved())
}

func TestDetectColumnsFirstLastNotSameColumn(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"name_a", "website"},
		Rows: [][]string{
			{"John", "example.com"},
			{"Ann", "acme.io"},
		},
	}

	m := ingest.DetectColumns(table)

	first := m[ingest.FieldFirstName].Index
	last := m[ingest.FieldLastName].Index

	if first >= 0 && last >= 0 {
		assert.NotEqual(t, first, last)
	}
}

func TestDetectColumnsNothingFound(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"qty", "price"},
		Rows: [][]string{
			{"3", "19.99"},
		},
	}

	m := ingest.DetectColumns(table)

	assert.False(t, m.Resolved())
	assert.Equal(t, -1, m[ingest.FieldFirstName].Index)
}

func TestContacts(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"firstname", "lastname", "companyURL"},
		Rows: [][]string{
			{"John", "Smith", "https://example.com"},
			{"Ann", "Carter"},
		},
	}

	contacts, err := ingest.Contacts(table, ingest.DetectColumns(table))

	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "John", contacts[0].FirstName)
	assert.Equal(t, "https://example.com", contacts[0].CompanyURL)
	assert.Empty(t, contacts[1].CompanyURL, "short row reads as blank cells")
}

func TestContactsFromFullName(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"full_name", "website"},
		Rows: [][]string{
			{"John Smith", "example.com"},
			{"Ann Beth Carter", "acme.io"},
			{"Cher", "solo.com"},
		},
	}

	contacts, err := ingest.Contacts(table, ingest.DetectColumns(table))

	require.NoError(t, err)
	require.Len(t, contacts, 3)
	assert.Equal(t, "John", contacts[0].FirstName)
	assert.Equal(t, "Smith", contacts[0].LastName)
	assert.Equal(t, "Beth Carter", contacts[1].LastName)
	assert.Equal(t, "Cher", contacts[2].FirstName)
	assert.Empty(t, contacts[2].LastName)
}

func TestContactsColumnsNotFound(t *testing.T) {
	table := &ingest.Table{
		Headers: []string{"qty", "price"},
		Rows:    [][]string{{"3", "19.99"}},
	}

	_, err := ingest.Contacts(table, ingest.DetectColumns(table))

	assert.ErrorIs(t, err, ingest.ErrColumnsNotFound)
}

func TestReadCSV(t *testing.T) {
	data := "firstname,lastname,companyURL\nJohn,Smith,example.com\nAnn,Carter,acme.io\n"

	table, err := ingest.ReadCSV(strings.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, []string{"firstname", "lastname", "companyURL"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "acme.io", table.Rows[1][2])
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ingest.ReadCSV(strings.NewReader("firstname,lastname\n"))

	assert.ErrorIs(t, err, ingest.ErrEmptyFile)
}
