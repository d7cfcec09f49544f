package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// CSVHeader is the first row of every CSV report.
var CSVHeader = []string{"Date", "Line Code", "ST Hours", "OT Hours", "Total Hours", "Notes"}

// WriteCSV writes one line per entry row. Notes are quoted by the CSV
// writer when they contain commas, quotes or newlines.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		rec := []string{
			row.WorkDate.String(),
			row.LineCode,
			row.ST.Decimal().String(),
			row.OT.Decimal().String(),
			row.Total.Decimal().String(),
			row.Note,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sheet names of the XLSX workbook.
const (
	SheetEntries = "Entries"
	SheetSummary = "Summary"
)

// WriteXLSX writes a workbook with an Entries sheet (the CSV rows) and a
// Summary sheet (range totals, per-line and per-month breakdowns).
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetEntries); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summaryIdx, err := f.NewSheet(SheetSummary)
	if err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sw := sheetWriter{f: f, sheet: SheetEntries, bold: bold}
	sw.header(toAny(CSVHeader)...)
	for _, row := range r.Rows {
		sw.row(row.WorkDate.String(), row.LineCode, row.ST.Float64(), row.OT.Float64(), row.Total.Float64(), row.Note)
	}
	if sw.err != nil {
		return sw.err
	}

	sw = sheetWriter{f: f, sheet: SheetSummary, bold: bold}
	sw.header("Report", fmt.Sprintf("%s to %s", r.Period.Start, r.Period.End))
	sw.row("Total Hours", r.TotalHours.Float64())
	sw.row("Standard Time", r.TotalST.Float64())
	sw.row("Overtime", r.TotalOT.Float64())
	sw.row("Days Worked", r.DaysWorked)
	sw.row("Average Hours/Day", r.AvgHoursPerDay.Float64())
	sw.row()
	sw.header("Line Code", "Total", "ST", "OT")
	for _, line := range r.Lines {
		t := r.LineTotals[line]
		sw.row(line, t.Total.Float64(), t.ST.Float64(), t.OT.Float64())
	}
	sw.row()
	sw.header("Month", "Total", "ST", "OT")
	for _, m := range r.Months {
		t := r.MonthTotals[m]
		sw.row(m, t.Total.Float64(), t.ST.Float64(), t.OT.Float64())
	}
	if sw.err != nil {
		return sw.err
	}

	f.SetActiveSheet(summaryIdx)
	return f.Write(w)
}

// sheetWriter appends rows to one sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	bold  int
	next  int
	err   error
}

func (s *sheetWriter) row(values ...any) {
	s.write(values, false)
}

func (s *sheetWriter) header(values ...any) {
	s.write(values, true)
}

func (s *sheetWriter) write(values []any, bold bool) {
	if s.err != nil {
		return
	}
	s.next++
	if len(values) == 0 {
		return
	}
	start, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(s.sheet, start, &values); err != nil {
		s.err = err
		return
	}
	if bold {
		end, err := excelize.CoordinatesToCellName(len(values), s.next)
		if err != nil {
			s.err = err
			return
		}
		s.err = s.f.SetCellStyle(s.sheet, start, end, s.bold)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
