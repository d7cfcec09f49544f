package timesheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vrs/time-wizard/calendar"
)

// =============================================================================
// EXPORT DOCUMENT
// =============================================================================

// ExportDocument is the backup file format shared with the mobile app.
type ExportDocument struct {
	TimeEntries []TimeEntry `json:"time_entries"`
	LineCodes   []LineCode  `json:"line_codes"`
	Settings    []Setting   `json:"settings"`
	ExportDate  time.Time   `json:"export_date"`
}

// Export captures every entry, line code and setting.
func (s *Service) Export(ctx context.Context) (ExportDocument, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return ExportDocument{}, fmt.Errorf("snapshot: %w", err)
	}
	doc := ExportDocument{
		TimeEntries: snap.Entries,
		LineCodes:   snap.Lines,
		Settings:    snap.Settings,
		ExportDate:  s.now().UTC(),
	}
	if doc.TimeEntries == nil {
		doc.TimeEntries = []TimeEntry{}
	}
	if doc.LineCodes == nil {
		doc.LineCodes = []LineCode{}
	}
	if doc.Settings == nil {
		doc.Settings = []Setting{}
	}
	return doc, nil
}

// Import replaces all entries, line codes and settings with the document's
// contents. Nothing is merged: an empty time_entries array leaves the store
// with no entries. Duplicate (work_date, line_code) rows keep the last one.
// Derived entry fields are recomputed from the imported settings when they
// describe a valid pay cycle.
func (s *Service) Import(ctx context.Context, doc ExportDocument) (ImportResult, error) {
	snap, err := normalizeImport(doc)
	if err != nil {
		return ImportResult{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.ReplaceAll(ctx, snap); err != nil {
		return ImportResult{}, fmt.Errorf("replace data: %w", err)
	}

	res := ImportResult{Entries: len(snap.Entries), Lines: len(snap.Lines), Settings: len(snap.Settings)}
	s.log.WithField("entries", res.Entries).WithField("lines", res.Lines).Info("data imported")
	return res, nil
}

// ImportResult counts the rows written by an import.
type ImportResult struct {
	Entries  int `json:"entries"`
	Lines    int `json:"line_codes"`
	Settings int `json:"settings"`
}

func normalizeImport(doc ExportDocument) (Snapshot, error) {
	settings := make(map[string]string, len(doc.Settings))
	var snap Snapshot
	for _, st := range doc.Settings {
		if strings.TrimSpace(st.Key) == "" {
			return Snapshot{}, fmt.Errorf("%w: setting with empty key", ErrInvalidImport)
		}
		settings[st.Key] = st.Value
		snap.Settings = append(snap.Settings, st)
	}

	seenLines := make(map[string]bool, len(doc.LineCodes))
	for _, l := range doc.LineCodes {
		if strings.TrimSpace(l.Code) == "" {
			return Snapshot{}, fmt.Errorf("%w: line code with empty code", ErrInvalidImport)
		}
		if seenLines[l.Code] {
			return Snapshot{}, fmt.Errorf("%w: line code %s listed twice", ErrInvalidImport, l.Code)
		}
		seenLines[l.Code] = true
		if l.Label == "" {
			l.Label = l.Code
		}
		snap.Lines = append(snap.Lines, l)
	}

	pc, pcErr := calendar.ParsePayCycle(settings[calendar.SettingBasePayWeekEnding], settings[calendar.SettingPayFrequencyDays])

	index := make(map[EntryKey]int, len(doc.TimeEntries))
	for _, e := range doc.TimeEntries {
		if strings.TrimSpace(e.LineCode) == "" {
			return Snapshot{}, fmt.Errorf("%w: entry on %s without line code", ErrInvalidImport, e.WorkDate)
		}
		if e.STHours.IsNegative() || e.OTHours.IsNegative() {
			return Snapshot{}, fmt.Errorf("%w: negative hours on %s", ErrInvalidImport, e.Key())
		}
		e.WeekEndingDate = calendar.WeekEnding(e.WorkDate)
		if pcErr == nil {
			e.IsPayWeek, _ = pc.IsPayWeek(e.WeekEndingDate)
		}
		if i, ok := index[e.Key()]; ok {
			snap.Entries[i] = e
			continue
		}
		index[e.Key()] = len(snap.Entries)
		snap.Entries = append(snap.Entries, e)
	}
	return snap, nil
}

// DecodeExport reads an export document, accepting the app's older files:
// booleans stored as 0/1 and line codes without ot_allowed.
func DecodeExport(data []byte) (ExportDocument, error) {
	var doc ExportDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return ExportDocument{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return doc, nil
}

// =============================================================================
// LENIENT DECODING
// =============================================================================

// flexBool decodes true/false, 0/1 and their quoted forms.
type flexBool struct {
	set   bool
	value bool
}

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "1":
		*b = flexBool{set: true, value: true}
	case "false", "0":
		*b = flexBool{set: true, value: false}
	case "null", "":
		*b = flexBool{}
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// UnmarshalJSON fills OTAllowed from the seed rule when the field is absent.
func (l *LineCode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code      string   `json:"line_code"`
		Label     string   `json:"label"`
		IsVisible flexBool `json:"is_visible"`
		IsProject flexBool `json:"is_project"`
		OTAllowed flexBool `json:"ot_allowed"`
		SortOrder int      `json:"sort_order"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = LineCode{
		Code:      raw.Code,
		Label:     raw.Label,
		IsVisible: !raw.IsVisible.set || raw.IsVisible.value,
		IsProject: raw.IsProject.value,
		OTAllowed: DefaultOTAllowed(raw.Code),
		SortOrder: raw.SortOrder,
	}
	if raw.OTAllowed.set {
		l.OTAllowed = raw.OTAllowed.value
	}
	return nil
}

// UnmarshalJSON accepts is_pay_week as 0/1. work_date is required: a
// record without one would otherwise land on the zero date.
func (e *TimeEntry) UnmarshalJSON(data []byte) error {
	type plain TimeEntry
	var raw struct {
		plain
		WorkDate  *calendar.Date `json:"work_date"`
		IsPayWeek flexBool       `json:"is_pay_week"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.WorkDate == nil {
		return fmt.Errorf("%w: entry for line %q without work_date", ErrInvalidEntry, raw.LineCode)
	}
	*e = TimeEntry(raw.plain)
	e.WorkDate = *raw.WorkDate
	e.IsPayWeek = raw.IsPayWeek.value
	return nil
}
