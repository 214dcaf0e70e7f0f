package excel

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/schedulebot/internal/schedule"
	"github.com/example/schedulebot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv
var ErrUnsupportedFormat = errors.New("unsupported file format")

// EventAdder validates and stores one event on behalf of an admin
type EventAdder interface {
	AddEvent(ctx context.Context, actorID int64, in schedule.EventInput) (models.Event, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	DateColumn  string // Column with the date
	TimeColumn  string // Column with the start time
	TitleColumn string // Column with the class title
	RoomColumn  string // Column with the room
	GroupColumn string // Column with the group name
	SheetName   string // Sheet to import; empty means the active sheet
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		DateColumn:  "A",
		TimeColumn:  "B",
		TitleColumn: "C",
		RoomColumn:  "D",
		GroupColumn: "E",
		StartRow:    2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

// Importer loads timetable rows from spreadsheets
type Importer struct {
	adder   EventAdder
	config  ImportConfig
	logger  *slog.Logger
	columns [5]int
}

// NewImporter creates an importer that stores rows through adder
func NewImporter(adder EventAdder, config ImportConfig, logger *slog.Logger) (*Importer, error) {
	im := &Importer{adder: adder, config: config, logger: logger}
	if im.config.StartRow < 1 {
		im.config.StartRow = 1
	}

	names := []string{config.DateColumn, config.TimeColumn, config.TitleColumn, config.RoomColumn, config.GroupColumn}
	for i, name := range names {
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return nil, fmt.Errorf("invalid import column %q: %w", name, err)
		}
		im.columns[i] = n - 1
	}
	return im, nil
}

// Supported reports whether the file name has an importable extension
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// Import reads every row of the file and adds it as an event.
// Rejected rows are reported in the result; a storage failure aborts the import.
func (im *Importer) Import(ctx context.Context, actorID int64, filename string, r io.Reader) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm":
		rows, err = im.readExcel(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < im.config.StartRow-1 {
			continue
		}
		rowNum := i + 1

		in, ok := im.rowInput(row)
		if !ok {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		if _, err := im.adder.AddEvent(ctx, actorID, in); err != nil {
			var verr *schedule.ValidationError
			if errors.As(err, &verr) {
				result.Errors = append(result.Errors, fmt.Sprintf("Рядок %d: %s", rowNum, verr.Message))
				continue
			}
			return result, fmt.Errorf("failed to import row %d: %w", rowNum, err)
		}
		result.Imported++
	}

	im.logger.Info("timetable imported",
		"file", filename, "admin_id", actorID,
		"processed", result.TotalProcessed, "imported", result.Imported, "rejected", len(result.Errors))
	return result, nil
}

func (im *Importer) readExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := im.config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(br)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// detectDelimiter picks ';' for locales where spreadsheets export it instead of ','
func detectDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := strings.IndexByte(string(head), '\n'); i >= 0 {
		head = head[:i]
	}
	line := string(head)
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func (im *Importer) rowInput(row []string) (schedule.EventInput, bool) {
	cell := func(i int) string {
		idx := im.columns[i]
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	in := schedule.EventInput{
		Date:  NormalizeDate(cell(0)),
		Time:  NormalizeTime(cell(1)),
		Title: cell(2),
		Room:  cell(3),
		Group: cell(4),
	}
	if in.Date == "" && in.Time == "" && in.Title == "" && in.Room == "" && in.Group == "" {
		return in, false
	}
	return in, true
}

var dateLayouts = []string{
	schedule.DateLayout,
	"02.01.2006",
	"01-02-06", // spreadsheet default short date
}

// NormalizeDate converts the accepted spreadsheet date forms to YYYY-MM-DD.
// Unrecognised values are returned unchanged so validation can report them.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(schedule.DateLayout)
		}
	}
	return value
}

// NormalizeTime converts HH:MM and HH:MM:SS to HH:MM
func NormalizeTime(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range []string{schedule.TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(schedule.TimeLayout)
		}
	}
	return value
}
