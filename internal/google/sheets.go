package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	timestampStyle = "2006-01-02 15:04:05"

	// A..M
	lastColumn   = "M"
	statusColumn = "K"
	updateColumn = "M"
)

var ErrRowNotFound = errors.New("booking row not found")

var bookingHeaders = []interface{}{
	"ID", "Group", "Date", "Start", "End", "Client", "Phone", "Service", "Staff", "Price", "Status", "Notes", "Updated At",
}

// SheetsService mirrors bookings into one sheet of a spreadsheet, one row per
// booking keyed by the ID in column A.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location
	logger        *zerolog.Logger

	rowCache map[int64]int
	cacheMu  sync.RWMutex
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, loc *time.Location, logger *zerolog.Logger) (*SheetsService, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsService(srv, spreadsheetID, sheetName, loc, logger), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string, loc *time.Location, logger *zerolog.Logger) *SheetsService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		loc:           loc,
		logger:        logger,
		rowCache:      make(map[int64]int),
	}
}

func (s *SheetsService) rangeOf(cells string) string {
	return s.sheetName + "!" + cells
}

func (s *SheetsService) rowRange(row int) string {
	return s.rangeOf(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[int64]int, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	s.logger.Debug().Int("rows", len(cache)).Msg("Sheets row cache warmed up")
	return nil
}

func cellID(v interface{}) int64 {
	switch v := v.(type) {
	case float64:
		return int64(v)
	case string:
		id, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return id
	}
	return 0
}

// AppendBooking добавляет новое бронирование
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.Booking) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{s.bookingRowValues(booking)},
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:A"), valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	if resp.Updates != nil {
		if row := rowFromRange(resp.Updates.UpdatedRange); row > 0 {
			s.setCachedRow(booking.ID, row)
		}
	}
	return nil
}

// rowFromRange extracts the first row number of an A1 range like "Bookings!A10:M10".
func rowFromRange(a1 string) int {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	row, err := strconv.Atoi(strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	if err != nil {
		return 0
	}
	return row
}

// UpsertBooking updates an existing booking row or appends a new one if not found.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.AppendBooking(ctx, booking)
		}
		return err
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{s.bookingRowValues(booking)},
	}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rowRange(rowIdx), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// DeleteBookingRow clears the row of bookingID. Rows are not shifted so the
// cached indexes of other bookings stay valid.
func (s *SheetsService) DeleteBookingRow(ctx context.Context, bookingID int64) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.rowRange(rowIdx), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.deleteCacheRow(bookingID)
	}
	return err
}

// UpdateBookingStatus updates status and Updated At of a booking row.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	data := []*sheets.ValueRange{
		{
			Range:  s.rangeOf(fmt.Sprintf("%s%d", statusColumn, rowIdx)),
			Values: [][]interface{}{{status}},
		},
		{
			Range:  s.rangeOf(fmt.Sprintf("%s%d", updateColumn, rowIdx)),
			Values: [][]interface{}{{time.Now().In(s.loc).Format(timestampStyle)}},
		},
	}
	_, err = s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	return err
}

// FindBookingRow locates the 1-based row of bookingID in column A.
func (s *SheetsService) FindBookingRow(ctx context.Context, bookingID int64) (int, error) {
	if bookingID == 0 {
		return 0, fmt.Errorf("booking id is required")
	}

	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cellID(row[0]) == bookingID {
			rowIdx := i + 1
			s.setCachedRow(bookingID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, fmt.Errorf("booking %d: %w", bookingID, ErrRowNotFound)
}

// ReplaceAll rewrites the sheet with a header and the given bookings.
func (s *SheetsService) ReplaceAll(ctx context.Context, bookings []*models.Booking) error {
	values := make([][]interface{}, 0, len(bookings)+1)
	values = append(values, bookingHeaders)
	for _, b := range bookings {
		values = append(values, s.bookingRowValues(b))
	}

	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.rangeOf("A:"+lastColumn), &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to clear sheet: %w", err)
	}

	rangeData := s.rangeOf(fmt.Sprintf("A1:%s%d", lastColumn, len(values)))
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	cache := make(map[int64]int, len(bookings))
	for i, b := range bookings {
		cache[b.ID] = i + 2
	}
	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCacheRow(id int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func (s *SheetsService) bookingRowValues(b *models.Booking) []interface{} {
	start := b.Start.In(s.loc)
	return []interface{}{
		b.ID,
		b.GroupID,
		start.Format(dateLayout),
		start.Format(clockLayout),
		b.End.In(s.loc).Format(clockLayout),
		b.ClientName,
		b.Phone,
		b.ServiceName,
		b.StaffName,
		b.Price.String(),
		b.Status,
		b.Notes,
		b.UpdatedAt.In(s.loc).Format(timestampStyle),
	}
}
