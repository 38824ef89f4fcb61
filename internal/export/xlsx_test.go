package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteRegistrations(t *testing.T) {
	registered := time.Date(2026, 8, 1, 9, 15, 0, 0, time.UTC)
	checkedIn := time.Date(2026, 8, 20, 18, 5, 0, 0, time.UTC)

	regs := []models.Registration{
		{
			Name: "Ananya Rao", Email: "ananya@example.edu", Phone: "9999900000", Organization: "Drama Society",
			TicketCode: "T-1", CheckedIn: true, CheckedInAt: &checkedIn, CreatedAt: registered,
		},
		{
			Name: "Dev Patel", Email: "dev@example.edu", TicketCode: "T-2", CreatedAt: registered,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRegistrations(&buf, regs, time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Name", "Email", "Phone", "Organization", "Registration Date", "Checked In", "Check-in Time", "Ticket Code"}, rows[0])
	assert.Equal(t, []string{"Ananya Rao", "ananya@example.edu", "9999900000", "Drama Society", "2026-08-01 09:15", "Yes", "2026-08-20 18:05", "T-1"}, rows[1])

	// trailing empty cells are trimmed by GetRows
	assert.Equal(t, "No", rows[2][5])
	assert.Equal(t, "T-2", rows[2][7])
	assert.Equal(t, "", rows[2][6])
}

func TestWriteRegistrations_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRegistrations(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "registrations-E1-20260820.xlsx", Filename("E1", time.Date(2026, 8, 20, 23, 0, 0, 0, time.UTC)))
}
