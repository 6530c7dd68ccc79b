package clock

import "time"

// MonthStart returns the first instant of t's month in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// NextMonthStart returns the first instant of the month following t's month in loc.
func NextMonthStart(t time.Time, loc *time.Location) time.Time {
	return MonthStart(t, loc).AddDate(0, 1, 0)
}

// CycleMonth returns the calendar month containing t as a date value
// (first day of the month at midnight UTC). This is the form stored in
// billing_cycles.cycle_month and bills.month.
func CycleMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NormalizeMonth truncates any date to its cycle month form.
func NormalizeMonth(month time.Time) time.Time {
	return time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns [start, end) of a cycle month in loc.
func MonthBounds(month time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// PreviousMonth returns the cycle month before month.
func PreviousMonth(month time.Time) time.Time {
	return NormalizeMonth(month).AddDate(0, -1, 0)
}

func DayOfMonth(t time.Time, loc *time.Location) int {
	return t.In(loc).Day()
}

// MonthKey formats a cycle month as YYYY-MM.
func MonthKey(month time.Time) string {
	return month.Format("2006-01")
}

// ParseMonthKey parses a YYYY-MM string into a cycle month.
func ParseMonthKey(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeMonth(t), nil
}
