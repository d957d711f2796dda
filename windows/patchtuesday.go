package windows

import "time"

// SecondTuesday returns midnight UTC of the second Tuesday of the given month.
func SecondTuesday(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Tuesday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7)
}

// IsPatchTuesday reports whether t falls on the second Tuesday of its month.
// The calendar date is read in t's own location; t is not converted to UTC first.
func IsPatchTuesday(t time.Time) bool {
	year, month, day := t.Date()
	return SecondTuesday(year, month).Day() == day
}
