package recurring

import "time"

// NextRun returns the due date one frequency unit after a payment date.
// Month and year steps use calendar arithmetic, so paying a monthly bill
// on Jan 31 schedules the next run for Mar 2 or Mar 3 (Jan 31 + 1 month
// normalizes past the short February).
func NextRun(paid time.Time, frequency string) time.Time {
	switch frequency {
	case FrequencyDaily:
		return paid.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return paid.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return paid.AddDate(0, 1, 0)
	case FrequencyYearly:
		return paid.AddDate(1, 0, 0)
	}
	return paid
}

// Midnight truncates a time to the start of its day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysUntil counts whole calendar days from now's date to due's date.
// Negative when the due date has passed.
func DaysUntil(due, now time.Time) int {
	return int(Midnight(due).Sub(Midnight(now)).Hours() / 24)
}
