// Package dateparse turns free-form date expressions ("tomorrow",
// "next 3 days", "1st April 2025", "13/05/2025") into canonical calendar
// dates and date ranges.
//
// Every parse is relative to an explicit reference date and never fails:
// input that matches no rule resolves to the reference date.
package dateparse

import (
	"fmt"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// maxYear keeps relative arithmetic inside the four-digit canonical form.
const maxYear = 9999

// LastDate is the latest day with a four-digit year.
var LastDate = Date{Year: maxYear, Month: time.December, Day: 31}

// Date is a calendar day with no clock or zone. The zero value is not a
// valid date; construct with NewDate, ParseISO or FromTime.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates year/month/day against the Gregorian calendar.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if year < 1 || year > maxYear {
		return Date{}, false
	}
	if month < time.January || month > time.December {
		return Date{}, false
	}
	if day < 1 || day > daysIn(year, month) {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// FromTime takes the calendar day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today is the local calendar day. Only edges (CLI, HTTP handlers) call it;
// everything below them receives the reference date as a parameter.
func Today() Date {
	return FromTime(time.Now())
}

// ParseISO accepts exactly YYYY-MM-DD.
func ParseISO(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if len(s) != len(isoLayout) {
		return Date{}, false
	}
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return Date{}, false
	}
	return FromTime(t), true
}

// MustParseISO is ParseISO for literals known to be valid.
func MustParseISO(s string) Date {
	d, ok := ParseISO(s)
	if !ok {
		panic(fmt.Sprintf("dateparse: invalid canonical date %q", s))
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Time is midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool {
	return d.String() < o.String()
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// Weekday numbers Monday=0 through Sunday=6.
func (d Date) Weekday() int {
	return (int(d.Time().Weekday()) + 6) % 7
}

// Display renders d the way replies show dates, e.g. "May 29, 2025".
func (d Date) Display() string {
	return d.Time().Format("January 02, 2006")
}

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, ok := ParseISO(string(b))
	if !ok {
		return fmt.Errorf("dateparse: invalid canonical date %q", string(b))
	}
	*d = parsed
	return nil
}

// AddDaysChecked is AddDays that refuses offsets leaving the canonical
// year range.
func (d Date) AddDaysChecked(n int) (Date, bool) {
	const maxOffset = maxYear * 366
	if n > maxOffset || n < -maxOffset {
		return Date{}, false
	}
	out := d.AddDays(n)
	if out.Year < 1 || out.Year > maxYear {
		return Date{}, false
	}
	return out, true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
