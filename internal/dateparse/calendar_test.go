package dateparse

import (
	"testing"
	"time"
)

func TestEndOfMonthHandlesLeapYears(t *testing.T) {
	cases := map[string]int{
		"2024-02-10": 29,
		"2025-02-10": 28,
		"2000-02-01": 29,
		"1900-02-01": 28,
		"2025-04-30": 30,
		"2025-12-01": 31,
	}
	for in, wantDay := range cases {
		got := EndOfMonth(MustParseISO(in))
		if got.Day != wantDay {
			t.Fatalf("EndOfMonth(%s): expected day %d, got %s", in, wantDay, got)
		}
	}
}

func TestWeekBoundaries(t *testing.T) {
	cases := []struct {
		ref         string
		start       string
		end         string
		nextWeekEnd string
	}{
		{"2025-05-29", "2025-05-26", "2025-06-01", "2025-06-08"},
		{"2025-05-26", "2025-05-26", "2025-06-01", "2025-06-08"},
		{"2025-06-01", "2025-05-26", "2025-06-01", "2025-06-08"},
		{"2024-12-31", "2024-12-30", "2025-01-05", "2025-01-12"},
	}
	for _, tc := range cases {
		ref := MustParseISO(tc.ref)
		if got := StartOfWeek(ref).String(); got != tc.start {
			t.Fatalf("StartOfWeek(%s): expected %s, got %s", tc.ref, tc.start, got)
		}
		if got := EndOfWeek(ref).String(); got != tc.end {
			t.Fatalf("EndOfWeek(%s): expected %s, got %s", tc.ref, tc.end, got)
		}
		if got := EndOfNextWeek(ref).String(); got != tc.nextWeekEnd {
			t.Fatalf("EndOfNextWeek(%s): expected %s, got %s", tc.ref, tc.nextWeekEnd, got)
		}
	}
}

func TestNextMonthRollsOverYear(t *testing.T) {
	ref := MustParseISO("2025-12-15")
	if got := StartOfNextMonth(ref).String(); got != "2026-01-01" {
		t.Fatalf("expected 2026-01-01, got %s", got)
	}
	if got := EndOfNextMonth(ref).String(); got != "2026-01-31" {
		t.Fatalf("expected 2026-01-31, got %s", got)
	}
	if got := EndOfNextMonth(MustParseISO("2024-01-31")).String(); got != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s", got)
	}
}

func TestWeekdayStartsOnMonday(t *testing.T) {
	monday := MustParseISO("2025-05-26")
	for i := 0; i < 7; i++ {
		if got := monday.AddDays(i).Weekday(); got != i {
			t.Fatalf("expected weekday %d, got %d", i, got)
		}
	}
}

func TestNewDateValidatesCalendar(t *testing.T) {
	invalid := []struct {
		y int
		m time.Month
		d int
	}{
		{2025, 2, 29},
		{2025, 13, 1},
		{2025, 0, 1},
		{2025, 4, 31},
		{0, 1, 1},
		{10000, 1, 1},
	}
	for _, tc := range invalid {
		if _, ok := NewDate(tc.y, tc.m, tc.d); ok {
			t.Fatalf("expected %d-%d-%d to be invalid", tc.y, tc.m, tc.d)
		}
	}
	if d, ok := NewDate(2024, 2, 29); !ok || d.String() != "2024-02-29" {
		t.Fatalf("expected leap day to be valid, got %s %v", d, ok)
	}
}

func TestParseISOIsStrict(t *testing.T) {
	for _, in := range []string{"2025-5-1", "2025/05/01", "25-05-01", "2025-05-01T00:00:00Z", ""} {
		if _, ok := ParseISO(in); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestDateTextEncoding(t *testing.T) {
	d := MustParseISO("2025-05-29")
	b, err := d.MarshalText()
	if err != nil || string(b) != "2025-05-29" {
		t.Fatalf("unexpected marshal result %q %v", b, err)
	}
	var back Date
	if err := back.UnmarshalText(b); err != nil || back != d {
		t.Fatalf("unexpected unmarshal result %s %v", back, err)
	}
	if err := back.UnmarshalText([]byte("nope")); err == nil {
		t.Fatalf("expected an error for a malformed date")
	}
	if d.Display() != "May 29, 2025" {
		t.Fatalf("unexpected display %q", d.Display())
	}
}

func TestAddDaysCheckedStaysInFourDigitYears(t *testing.T) {
	end := MustParseISO("9999-12-30")
	if got, ok := end.AddDaysChecked(1); !ok || got != LastDate {
		t.Fatalf("expected LastDate, got %s %v", got, ok)
	}
	if _, ok := end.AddDaysChecked(2); ok {
		t.Fatal("expected overflow past 9999-12-31 to be refused")
	}
	if _, ok := MustParseISO("2025-05-29").AddDaysChecked(50_000_000); ok {
		t.Fatal("expected a huge offset to be refused")
	}
}
