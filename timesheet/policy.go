package timesheet

import "github.com/vrs/time-wizard/calendar"

// Entry limits.
var (
	MaxDailyST  = NewHours(8)  // per (work_date, line_code)
	MaxWeeklyST = NewHours(40) // across all lines of one week
	Step        = NewHours(1)  // one stepper press
)

// CheckIncrementST gates adding step ST hours to one entry. entryST is the
// entry's current ST; weekST is the week's ST across all lines, including
// this entry. Excess over 40 is not converted to OT; the caller logs it on
// the OT control.
func CheckIncrementST(line LineCode, workDate calendar.Date, entryST, weekST, step Hours) error {
	if entryST.Add(step).GreaterThan(MaxDailyST) {
		return &PolicyViolation{Rule: RuleDailyST, LineCode: line.Code, WorkDate: workDate, Limit: MaxDailyST, Current: entryST}
	}
	if weekST.Add(step).GreaterThan(MaxWeeklyST) {
		return &PolicyViolation{Rule: RuleWeeklyST, LineCode: line.Code, WorkDate: workDate, Limit: MaxWeeklyST, Current: weekST}
	}
	return nil
}

// CheckIncrementOT rejects OT on lines that do not allow it.
func CheckIncrementOT(line LineCode, workDate calendar.Date) error {
	if !line.OTAllowed {
		return &PolicyViolation{Rule: RuleNoOvertime, LineCode: line.Code, WorkDate: workDate}
	}
	return nil
}

// CheckEntry validates a directly written entry against the same rules.
// otherWeekST is the week's ST excluding this entry.
func CheckEntry(line LineCode, e TimeEntry, otherWeekST Hours) error {
	if e.STHours.IsNegative() || e.OTHours.IsNegative() {
		return &PolicyViolation{Rule: RuleNegative, LineCode: line.Code, WorkDate: e.WorkDate}
	}
	if e.STHours.GreaterThan(MaxDailyST) {
		return &PolicyViolation{Rule: RuleDailyST, LineCode: line.Code, WorkDate: e.WorkDate, Limit: MaxDailyST, Current: e.STHours}
	}
	if otherWeekST.Add(e.STHours).GreaterThan(MaxWeeklyST) {
		return &PolicyViolation{Rule: RuleWeeklyST, LineCode: line.Code, WorkDate: e.WorkDate, Limit: MaxWeeklyST, Current: otherWeekST}
	}
	if !e.OTHours.IsZero() {
		return CheckIncrementOT(line, e.WorkDate)
	}
	return nil
}

// Decrement subtracts step but never goes below zero. Decrementing an
// empty column is a no-op, not an error.
func Decrement(current, step Hours) Hours {
	next := current.Sub(step)
	if next.IsNegative() {
		return ZeroHours()
	}
	return next
}

// WeekST sums ST over entries, skipping the entry with key skip when set.
func WeekST(entries []TimeEntry, skip *EntryKey) Hours {
	var total Hours
	for _, e := range entries {
		if skip != nil && e.Key() == *skip {
			continue
		}
		total = total.Add(e.STHours)
	}
	return total
}
