package oncall

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vrs/time-wizard/calendar"
)

// Required and optional schedule CSV headers. Matching is case-sensitive.
const (
	HeaderStartDate = "start_date"
	HeaderEndDate   = "end_date"
	HeaderUser      = "user"
	HeaderNotes     = "notes"
	HeaderLocation  = "location"
)

// Record is one parsed schedule row, still as text.
type Record struct {
	Row       int    `json:"row"` // 1-based line in the CSV, header is row 1
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	User      string `json:"user"`
	Notes     string `json:"notes,omitempty"`
	Location  string `json:"location,omitempty"`
}

// ParseScheduleCSV reads the published rotation sheet. The header row must
// contain start_date, end_date and user; rows missing any of the three are
// dropped. Extra columns are ignored.
func ParseScheduleCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, req := range []string{HeaderStartDate, HeaderEndDate, HeaderUser} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", ErrInvalidCSV, req)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, line, err)
		}
		rec := Record{
			Row:       line,
			StartDate: field(row, HeaderStartDate),
			EndDate:   field(row, HeaderEndDate),
			User:      field(row, HeaderUser),
			Notes:     field(row, HeaderNotes),
			Location:  field(row, HeaderLocation),
		}
		if rec.StartDate == "" || rec.EndDate == "" || rec.User == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// RecordsToAssignments parses dates and validates ranges. A bad date fails
// the whole batch with an InvalidDateError naming the row.
func RecordsToAssignments(records []Record) ([]Assignment, error) {
	out := make([]Assignment, 0, len(records))
	for _, rec := range records {
		start, err := calendar.ParseDate(rec.StartDate)
		if err != nil {
			return nil, fmt.Errorf("row %d start_date: %w", rec.Row, err)
		}
		end, err := calendar.ParseDate(rec.EndDate)
		if err != nil {
			return nil, fmt.Errorf("row %d end_date: %w", rec.Row, err)
		}
		a, err := NewAssignment(start, end, rec.User, rec.Location, rec.Notes)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rec.Row, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// UniqueUsers returns the distinct user names in first-seen order.
func UniqueUsers(schedule []Assignment) []string {
	seen := make(map[string]bool)
	var users []string
	for _, a := range schedule {
		if !seen[a.UserName] {
			seen[a.UserName] = true
			users = append(users, a.UserName)
		}
	}
	return users
}
