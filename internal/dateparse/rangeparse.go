package dateparse

// Range is an inclusive span of days with Start <= End.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains compares canonical strings, so an empty or malformed due date
// never falls inside a range.
func (r Range) Contains(due string) bool {
	return r.Start.String() <= due && due <= r.End.String()
}

func (r Range) IsSingleDay() bool {
	return r.Start == r.End
}

// Days lists every day of r in order.
func (r Range) Days() []Date {
	var out []Date
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

var rangePhrases = map[string]func(Date) Range{
	"this week": func(ref Date) Range {
		return Range{Start: StartOfWeek(ref), End: EndOfWeek(ref)}
	},
	"next week": func(ref Date) Range {
		monday := StartOfWeek(ref).AddDays(7)
		return Range{Start: monday, End: monday.AddDays(6)}
	},
	"this month": func(ref Date) Range {
		return Range{Start: StartOfMonth(ref), End: EndOfMonth(ref)}
	},
	"next month": func(ref Date) Range {
		return Range{Start: StartOfNextMonth(ref), End: EndOfNextMonth(ref)}
	},
}

// IsRangePhrase reports whether phrase names a whole week or month.
func IsRangePhrase(phrase string) bool {
	_, ok := rangePhrases[normalize(phrase)]
	return ok
}

// ParseRange resolves input to a span of days. Anything that is not a week,
// month or "next N days" phrase becomes the single day ParseDate returns.
func ParseRange(input string, ref Date) Range {
	normalized := normalize(input)
	if fn, ok := rangePhrases[normalized]; ok {
		return fn(ref)
	}
	if end, ok := matchNextDays(normalized, ref); ok {
		return Range{Start: ref, End: end}
	}
	d := ParseDate(input, ref)
	return Range{Start: d, End: d}
}
