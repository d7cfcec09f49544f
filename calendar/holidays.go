package calendar

import (
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// =============================================================================
// HOLIDAY CALENDAR - Federal holidays shown alongside a week
// =============================================================================

// Holiday is a named day off.
type Holiday struct {
	Date     Date   `json:"date"`
	Name     string `json:"name"`
	Observed bool   `json:"observed,omitempty"` // weekend holiday moved to a weekday
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	// IsHoliday returns the holiday on d, if any.
	IsHoliday(d Date) (Holiday, bool)

	// HolidaysIn returns holidays within p in date order.
	HolidaysIn(p Period) []Holiday
}

// NoHolidays is a no-op calendar for when holidays are disabled.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(Date) (Holiday, bool) { return Holiday{}, false }
func (NoHolidays) HolidaysIn(Period) []Holiday    { return nil }

// BusinessCalendar adapts a rickar/cal business calendar.
type BusinessCalendar struct {
	cal *cal.BusinessCalendar
}

// NewUSFederal returns the US federal holiday set that railroad crews
// typically log as HOLIDAY.
func NewUSFederal() *BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &BusinessCalendar{cal: c}
}

// IsHoliday checks both the actual and the observed date.
func (b *BusinessCalendar) IsHoliday(d Date) (Holiday, bool) {
	actual, observed, h := b.cal.IsHoliday(d.Time())
	if (!actual && !observed) || h == nil {
		return Holiday{}, false
	}
	return Holiday{Date: d, Name: h.Name, Observed: observed && !actual}, true
}

// HolidaysIn scans p day by day.
func (b *BusinessCalendar) HolidaysIn(p Period) []Holiday {
	var out []Holiday
	for _, d := range p.Days() {
		if h, ok := b.IsHoliday(d); ok {
			out = append(out, h)
		}
	}
	return out
}

// HolidayCalendarByName resolves a configured calendar name. "us" selects
// federal holidays; "" and "none" disable them.
func HolidayCalendarByName(name string) (HolidayCalendar, error) {
	switch name {
	case "", "none":
		return NoHolidays{}, nil
	case "us", "us-federal":
		return NewUSFederal(), nil
	default:
		return nil, &ConfigurationError{Key: "holidays", Value: name, Reason: "unknown holiday calendar"}
	}
}
