// Package export renders an event's registration list as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Registrations"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04"
)

var Header = []any{
	"Name", "Email", "Phone", "Organization", "Registration Date", "Checked In", "Check-in Time", "Ticket Code",
}

// Filename is the attachment name for eventID's export taken at now.
func Filename(eventID string, now time.Time) string {
	return fmt.Sprintf("registrations-%s-%s.xlsx", eventID, now.Format("20060102"))
}

// WriteRegistrations writes one row per registration under a bold header.
// Times are rendered in loc.
func WriteRegistrations(w io.Writer, regs []models.Registration, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, r := range regs {
		checkedIn, checkedInAt := "No", ""
		if r.CheckedIn {
			checkedIn = "Yes"
			if r.CheckedInAt != nil {
				checkedInAt = r.CheckedInAt.In(loc).Format(timeLayout)
			}
		}

		row := []any{
			r.Name,
			r.Email,
			r.Phone,
			r.Organization,
			r.CreatedAt.In(loc).Format(timeLayout),
			checkedIn,
			checkedInAt,
			r.TicketCode,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "H", 22); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
