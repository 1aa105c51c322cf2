package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/export"
)

func sampleOutcomes() []*domain.VerificationOutcome {
	return []*domain.VerificationOutcome{
		{
			FirstName: "John",
			LastName:  "Smith",
			FullName:  "John Smith",
			Company:   "example.com",
			Email:     "jsmith@example.com",
			Status:    "valid",
			CandidatesTried: []string{
				"jsmith@example.com",
			},
			CandidatesTotal: 11,
			AttemptIndex:    1,
		},
		{
			FirstName: "Ann",
			LastName:  "Carter",
			FullName:  "Ann Carter",
			Company:   "acme.io",
			Status:    domain.StatusNotFound,
			CandidatesTried: []string{
				"acarter@acme.io", "ann@acme.io",
			},
			CandidatesTotal: 11,
		},
	}
}

func TestSelectColumns(t *testing.T) {
	assert.Equal(t, export.DefaultColumns, export.SelectColumns(""))
	assert.Equal(t, export.DefaultColumns, export.SelectColumns("bogus,columns"))
	assert.Equal(t, []string{"Email", "Status"}, export.SelectColumns("Email, Status, nope"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	err := export.WriteCSV(&buf, sampleOutcomes(), []string{"First Name", "Email", "Status", "Calls Saved"})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"First Name", "Email", "Status", "Calls Saved"}, records[0])
	assert.Equal(t, []string{"John", "jsmith@example.com", "valid", "10"}, records[1])
	assert.Equal(t, []string{"Ann", "", "not_found", "9"}, records[2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer

	err := export.WriteXLSX(&buf, sampleOutcomes(), []string{"First Name", "Email", "Status"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Outcomes")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"First Name", "Email", "Status"}, rows[0])
	assert.Equal(t, "jsmith@example.com", rows[1][1])
	assert.Equal(t, "not_found", rows[2][2])
}
