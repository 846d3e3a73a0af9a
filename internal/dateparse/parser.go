package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rule names reported in Result.Rule.
const (
	RuleRelativeDay  = "relative_day"
	RuleHorizon      = "horizon"
	RuleNextDays     = "next_days"
	RuleInDays       = "in_days"
	RuleISO          = "iso_date"
	RuleMonthDayYear = "month_day_year"
	RuleDayMonthYear = "day_month_year"
	RuleSlashDate    = "slash_date"
	RuleDashDate     = "dash_date"
	RuleFallback     = "fallback"
)

// Result is a parsed date plus which rule produced it. Matched is false
// only when the input fell back to the reference date.
type Result struct {
	Date    Date
	Rule    string
	Matched bool
}

type rule struct {
	name  string
	match func(input string, ref Date) (Date, bool)
}

// rules is tried in order; the first match wins. Several patterns are
// subsets of later ones, so the order is part of the contract.
var rules = []rule{
	{RuleRelativeDay, matchRelativeDay},
	{RuleHorizon, matchHorizon},
	{RuleNextDays, matchNextDays},
	{RuleInDays, matchOffset(inDaysRe)},
	{RuleISO, matchISO},
	{RuleMonthDayYear, matchMonthDayYear},
	{RuleDayMonthYear, matchDayMonthYear},
	{RuleSlashDate, matchNumeric(slashDateRe)},
	{RuleDashDate, matchNumeric(dashDateRe)},
}

var (
	nextDaysRe     = regexp.MustCompile(`next (\d+) days?`)
	inDaysRe       = regexp.MustCompile(`in (\d+) days?`)
	isoDateRe      = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	monthDayYearRe = regexp.MustCompile(`(\w+)\s+(\d{1,2}),?\s+(\d{4})`)
	dayMonthYearRe = regexp.MustCompile(`(\d{1,2}(?:st|nd|rd|th)?)\s+(\w+)\s+(\d{4})`)
	slashDateRe    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	dashDateRe     = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)
	nonDigitRe     = regexp.MustCompile(`[^\d]`)
)

var matchNextDays = matchOffset(nextDaysRe)

var relativeDays = map[string]int{
	"today":     0,
	"now":       0,
	"tomorrow":  1,
	"next day":  1,
	"yesterday": -1,
}

var horizons = map[string]func(Date) Date{
	"this week":         EndOfWeek,
	"end of this week":  EndOfWeek,
	"next week":         EndOfNextWeek,
	"end of next week":  EndOfNextWeek,
	"this month":        EndOfMonth,
	"end of this month": EndOfMonth,
	"end of month":      EndOfMonth,
	"next month":        EndOfNextMonth,
	"end of next month": EndOfNextMonth,
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var ordinals = func() map[string]int {
	out := make(map[string]int, 31)
	for day := 1; day <= 31; day++ {
		out[strconv.Itoa(day)+ordinalSuffix(day)] = day
	}
	return out
}()

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// ParseDate resolves input against ref. It never fails: unparseable input
// yields ref.
func ParseDate(input string, ref Date) Date {
	return Parse(input, ref).Date
}

// Parse is ParseDate with the matching rule reported.
func Parse(input string, ref Date) Result {
	if strings.TrimSpace(input) == "" {
		return Result{Date: ref, Rule: RuleFallback}
	}
	normalized := normalize(input)
	for _, r := range rules {
		if d, ok := r.match(normalized, ref); ok {
			return Result{Date: d, Rule: r.name, Matched: true}
		}
	}
	return Result{Date: ref, Rule: RuleFallback}
}

// LookupMonth resolves a full or three-letter English month name.
func LookupMonth(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func matchRelativeDay(input string, ref Date) (Date, bool) {
	offset, ok := relativeDays[input]
	if !ok {
		return Date{}, false
	}
	return ref.AddDaysChecked(offset)
}

func matchHorizon(input string, ref Date) (Date, bool) {
	fn, ok := horizons[input]
	if !ok {
		return Date{}, false
	}
	return fn(ref), true
}

func matchOffset(re *regexp.Regexp) func(string, Date) (Date, bool) {
	return func(input string, ref Date) (Date, bool) {
		m := re.FindStringSubmatch(input)
		if m == nil {
			return Date{}, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Date{}, false
		}
		return ref.AddDaysChecked(n)
	}
}

func matchISO(input string, _ Date) (Date, bool) {
	m := isoDateRe.FindStringSubmatch(input)
	if m == nil {
		return Date{}, false
	}
	return dateFromParts(m[1], m[2], m[3])
}

func matchMonthDayYear(input string, _ Date) (Date, bool) {
	m := monthDayYearRe.FindStringSubmatch(input)
	if m == nil {
		return Date{}, false
	}
	month, ok := monthNames[m[1]]
	if !ok {
		return Date{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return NewDate(year, month, day)
}

func matchDayMonthYear(input string, _ Date) (Date, bool) {
	m := dayMonthYearRe.FindStringSubmatch(input)
	if m == nil {
		return Date{}, false
	}
	month, ok := monthNames[m[2]]
	if !ok {
		return Date{}, false
	}
	day, ok := ordinals[m[1]]
	if !ok {
		day, _ = strconv.Atoi(nonDigitRe.ReplaceAllString(m[1], ""))
	}
	year, _ := strconv.Atoi(m[3])
	return NewDate(year, month, day)
}

// matchNumeric reads a/b/yyyy as day/month first and month/day second.
// It is a heuristic: "02/03/2025" is always March 2nd.
func matchNumeric(re *regexp.Regexp) func(string, Date) (Date, bool) {
	return func(input string, _ Date) (Date, bool) {
		m := re.FindStringSubmatch(input)
		if m == nil {
			return Date{}, false
		}
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, ok := NewDate(year, time.Month(second), first); ok {
			return d, true
		}
		return NewDate(year, time.Month(first), second)
	}
}

func dateFromParts(year, month, day string) (Date, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Date{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Date{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return Date{}, false
	}
	return NewDate(y, time.Month(m), d)
}
