/*
paycycle.go - Recurring pay-week classification

PURPOSE:
  Decides whether a week-ending Saturday is a pay week. A pay cycle is an
  anchor Saturday plus a length in days (14 for biweekly). A week is a
  pay week when its distance from the anchor is a whole number of cycles,
  in either direction.

RECOMPUTED, NEVER CACHED:
  The anchor is user-editable. Callers classify weeks at read time from
  the current settings, so moving the anchor re-labels history at once.

NEGATIVE OFFSETS:
  Weeks before the anchor have a negative day difference. Go's % keeps the
  dividend's sign, so the check uses a true modulo: -42 mod 14 == 0.

SEE ALSO:
  - date.go: WeekEnding / WeekStart
  - timesheet/service.go: Stamps summaries with the pay-week flag
*/
package calendar

import (
	"strconv"
	"strings"
	"time"
)

// Setting keys read by the pay-cycle evaluator.
const (
	SettingBasePayWeekEnding = "base_pay_week_ending"
	SettingPayFrequencyDays  = "pay_frequency_days"
)

// Defaults seeded on first run.
const (
	DefaultBasePayWeekEnding = "2025-11-29"
	DefaultPayFrequencyDays  = 14
)

// PayCycle anchors a recurring pay schedule.
type PayCycle struct {
	Base          Date `json:"base_pay_week_ending"`
	FrequencyDays int  `json:"pay_frequency_days"`
}

// DefaultPayCycle returns the seeded biweekly cycle.
func DefaultPayCycle() PayCycle {
	return PayCycle{Base: MustParse(DefaultBasePayWeekEnding), FrequencyDays: DefaultPayFrequencyDays}
}

// ParsePayCycle builds a cycle from raw setting values. An empty value is
// treated as missing and reported as a ConfigurationError.
func ParsePayCycle(base, frequency string) (PayCycle, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return PayCycle{}, &ConfigurationError{Key: SettingBasePayWeekEnding, Reason: "missing"}
	}
	baseDate, err := ParseDate(base)
	if err != nil {
		return PayCycle{}, &ConfigurationError{Key: SettingBasePayWeekEnding, Value: base, Reason: "not a date"}
	}

	frequency = strings.TrimSpace(frequency)
	if frequency == "" {
		return PayCycle{}, &ConfigurationError{Key: SettingPayFrequencyDays, Reason: "missing"}
	}
	n, err := strconv.Atoi(frequency)
	if err != nil {
		return PayCycle{}, &ConfigurationError{Key: SettingPayFrequencyDays, Value: frequency, Reason: "not an integer"}
	}

	pc := PayCycle{Base: baseDate, FrequencyDays: n}
	if err := pc.checkFrequency(); err != nil {
		return PayCycle{}, err
	}
	return pc, nil
}

// Validate checks the cycle length is positive and the anchor is a Saturday.
// IsPayWeek itself accepts any anchor.
func (pc PayCycle) Validate() error {
	if err := pc.checkFrequency(); err != nil {
		return err
	}
	if pc.Base.Weekday() != time.Saturday {
		return &ConfigurationError{
			Key:    SettingBasePayWeekEnding,
			Value:  pc.Base.String(),
			Reason: "must be a Saturday (week-ending date)",
		}
	}
	return nil
}

func (pc PayCycle) checkFrequency() error {
	if pc.FrequencyDays <= 0 {
		return &ConfigurationError{
			Key:    SettingPayFrequencyDays,
			Value:  strconv.Itoa(pc.FrequencyDays),
			Reason: "must be a positive number of days",
		}
	}
	return nil
}

// IsPayWeek reports whether weekEnding falls on the cycle.
func (pc PayCycle) IsPayWeek(weekEnding Date) (bool, error) {
	return IsPayWeek(weekEnding, pc.Base, pc.FrequencyDays)
}

// IsPayWeek reports whether (weekEnding - base) is a whole multiple of
// frequencyDays. frequencyDays <= 0 is a ConfigurationError.
func IsPayWeek(weekEnding, base Date, frequencyDays int) (bool, error) {
	if frequencyDays <= 0 {
		return false, &ConfigurationError{
			Key:    SettingPayFrequencyDays,
			Value:  strconv.Itoa(frequencyDays),
			Reason: "must be a positive number of days",
		}
	}
	diff := int64(weekEnding.Sub(base))
	return mod(diff, int64(frequencyDays)) == 0, nil
}

// NextPayWeek returns the first pay week ending on or after d's week ending.
func (pc PayCycle) NextPayWeek(d Date) (Date, error) {
	if err := pc.checkFrequency(); err != nil {
		return Date{}, err
	}
	end := WeekEnding(d)
	offset := mod(int64(end.Sub(pc.Base)), int64(pc.FrequencyDays))
	if offset == 0 {
		return end, nil
	}
	return end.AddDays(pc.FrequencyDays - int(offset)), nil
}

// =============================================================================
// WEEK INFO - Derived, non-persisted view of one week
// =============================================================================

// WeekInfo describes the work week containing a reference date.
type WeekInfo struct {
	WeekEnding Date      `json:"week_ending_date"`
	WeekStart  Date      `json:"week_start"`
	IsPayWeek  bool      `json:"is_pay_week"`
	Holidays   []Holiday `json:"holidays,omitempty"`
}

// Info returns the week info for any date, not only Saturdays. holidays may
// be nil.
func (pc PayCycle) Info(d Date, holidays HolidayCalendar) (WeekInfo, error) {
	end := WeekEnding(d)
	pay, err := pc.IsPayWeek(end)
	if err != nil {
		return WeekInfo{}, err
	}
	info := WeekInfo{WeekEnding: end, WeekStart: WeekStart(end), IsPayWeek: pay}
	if holidays != nil {
		info.Holidays = holidays.HolidaysIn(Period{Start: info.WeekStart, End: end})
	}
	return info, nil
}
