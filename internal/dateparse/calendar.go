package dateparse

import "time"

// StartOfWeek is the Monday on or before ref.
func StartOfWeek(ref Date) Date {
	return ref.AddDays(-ref.Weekday())
}

// EndOfWeek is the Sunday on or after ref.
func EndOfWeek(ref Date) Date {
	return ref.AddDays(6 - ref.Weekday())
}

func EndOfNextWeek(ref Date) Date {
	return EndOfWeek(ref).AddDays(7)
}

func StartOfMonth(ref Date) Date {
	return Date{Year: ref.Year, Month: ref.Month, Day: 1}
}

// EndOfMonth is the last day of ref's month.
func EndOfMonth(ref Date) Date {
	return Date{Year: ref.Year, Month: ref.Month, Day: daysIn(ref.Year, ref.Month)}
}

// StartOfNextMonth rolls December over to January of the next year.
func StartOfNextMonth(ref Date) Date {
	year, month := ref.Year, ref.Month+1
	if month > time.December {
		year, month = year+1, time.January
	}
	return Date{Year: year, Month: month, Day: 1}
}

func EndOfNextMonth(ref Date) Date {
	return EndOfMonth(StartOfNextMonth(ref))
}
