package cli

import (
	"strings"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/amirbrooks/donna/internal/dateparse"
)

// resolveDue turns a --due expression into a date. The rule-table parser
// goes first; phrases it does not know ("next friday", "in two weeks") are
// handed to when. ok is false when neither understands raw.
func resolveDue(raw string, ref dateparse.Date) (dateparse.Date, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ref, true
	}
	if res := dateparse.Parse(raw, ref); res.Matched {
		return res.Date, true
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(raw, ref.Time())
	if err != nil || r == nil {
		return dateparse.Date{}, false
	}
	return dateparse.FromTime(r.Time), true
}
