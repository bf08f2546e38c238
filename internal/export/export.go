// Package export renders bookings into xlsx workbooks: a flat "Bookings"
// sheet plus one schedule grid per day (rows are start slots, columns staff).
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/models"
	"salonbook/internal/pricing"
	"salonbook/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	BookingsSheet = "Bookings"
	MaxDays       = 62

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var ErrRangeTooLong = errors.New("export range too long")

var bookingHeaders = []interface{}{"ID", "Date", "Start", "End", "Client", "Phone", "Service", "Staff", "Price", "Status", "Notes"}

type Exporter struct {
	dir    string
	loc    *time.Location
	slots  []schedule.Clock
	logger *zerolog.Logger
}

func NewExporter(dir string, salon config.SalonConfig, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		loc:    salon.Location(),
		slots:  salon.Slots(),
		logger: logger,
	}
}

// FileName is the name an export of the range is saved under.
func FileName(start, end time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", start.Format(dateLayout), end.Format(dateLayout))
}

// Build creates the workbook for the inclusive date range. daily is keyed by
// salon-local date as returned by GetDailyBookings.
func (e *Exporter) Build(start, end time.Time, daily map[string][]*models.Booking, staff []*models.Staff) (*excelize.File, error) {
	start = e.day(start)
	end = e.day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxDays {
		return nil, fmt.Errorf("%d days: %w", days, ErrRangeTooLong)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", BookingsSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := e.writeBookings(f, start, end, daily); err != nil {
		_ = f.Close()
		return nil, err
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := e.writeDay(f, d, daily[d.Format(dateLayout)], staff); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook to w.
func (e *Exporter) Write(w io.Writer, start, end time.Time, daily map[string][]*models.Booking, staff []*models.Staff) error {
	f, err := e.Build(start, end, daily, staff)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Save writes the workbook into the export directory and returns its path.
func (e *Exporter) Save(start, end time.Time, daily map[string][]*models.Booking, staff []*models.Staff) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.Build(start, end, daily, staff)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.dir, FileName(start, end))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	e.logger.Info().Str("file_path", path).Msg("Excel file created")
	return path, nil
}

func (e *Exporter) day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

func (e *Exporter) writeBookings(f *excelize.File, start, end time.Time, daily map[string][]*models.Booking) error {
	var all []*models.Booking
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		all = append(all, daily[d.Format(dateLayout)]...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })

	if err := f.SetSheetRow(BookingsSheet, "A1", &bookingHeaders); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(BookingsSheet, "A1", "K1", headerStyle)

	var prices []pricing.Price
	row := 2
	for _, b := range all {
		s := b.Start.In(e.loc)
		values := []interface{}{
			b.ID,
			s.Format(dateLayout),
			s.Format(clockLayout),
			b.End.In(e.loc).Format(clockLayout),
			b.ClientName,
			b.Phone,
			b.ServiceName,
			b.StaffName,
			b.Price.String(),
			b.Status,
			b.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(BookingsSheet, cell, &values); err != nil {
			return err
		}
		if b.IsActive() {
			prices = append(prices, b.Price)
		}
		row++
	}

	totalLabel, _ := excelize.CoordinatesToCellName(8, row+1)
	totalCell, _ := excelize.CoordinatesToCellName(9, row+1)
	_ = f.SetCellValue(BookingsSheet, totalLabel, "Total")
	_ = f.SetCellValue(BookingsSheet, totalCell, pricing.QuoteOf(prices).Label())
	_ = f.SetCellStyle(BookingsSheet, totalLabel, totalCell, headerStyle)

	_ = f.SetColWidth(BookingsSheet, "A", "D", 12)
	_ = f.SetColWidth(BookingsSheet, "E", "H", 20)
	return nil
}

// gridColumns returns the staff columns of a day grid. Bookings of staff
// outside the list, or unassigned, go to a trailing "Unassigned" column.
func gridColumns(bookings []*models.Booking, staff []*models.Staff) ([]string, map[int64]int, bool) {
	names := make([]string, 0, len(staff)+1)
	index := make(map[int64]int, len(staff))
	for i, st := range staff {
		names = append(names, st.Name)
		index[st.ID] = i
	}
	extra := false
	for _, b := range bookings {
		if _, ok := index[b.StaffID]; !ok && b.IsActive() {
			extra = true
		}
	}
	if extra {
		names = append(names, "Unassigned")
	}
	return names, index, extra
}

func (e *Exporter) writeDay(f *excelize.File, day time.Time, bookings []*models.Booking, staff []*models.Staff) error {
	sheet := day.Format(dateLayout)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	columns, index, _ := gridColumns(bookings, staff)

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Schedule %s", day.Format("Mon 02.01.2006")))
	_ = f.SetCellValue(sheet, "A2", "Time")
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+2, 2)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for i, slot := range e.slots {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		_ = f.SetCellValue(sheet, cell, slot.String())
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	bookedStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(columns) + 1)
	_ = f.MergeCell(sheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(sheet, "A1", lastCol+"2", headerStyle)

	for _, b := range bookings {
		if !b.IsActive() {
			continue
		}
		col, ok := index[b.StaffID]
		if !ok {
			col = len(columns) - 1
		}
		first, last := e.slotRows(b.EntryOn(e.day(day)))
		if first < 0 {
			continue
		}

		top, _ := excelize.CoordinatesToCellName(col+2, first+3)
		bottom, _ := excelize.CoordinatesToCellName(col+2, last+3)
		existing, _ := f.GetCellValue(sheet, top)
		text := fmt.Sprintf("%s\n%s", b.ClientName, b.ServiceName)
		if existing != "" {
			text = existing + "\n" + text
		}
		_ = f.SetCellValue(sheet, top, text)
		_ = f.SetCellStyle(sheet, top, bottom, bookedStyle)
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	if len(columns) > 0 {
		_ = f.SetColWidth(sheet, "B", lastCol, 22)
	}
	return nil
}

// slotRows returns the indexes of the first and last slot whose start falls
// inside the booking, or -1 when none does.
func (e *Exporter) slotRows(b schedule.Booking) (int, int) {
	start, end := b.Span()
	first, last := -1, -1
	for i, slot := range e.slots {
		if slot >= start && slot < end {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}
