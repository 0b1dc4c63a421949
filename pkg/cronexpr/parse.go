package cronexpr

import (
	"strconv"
	"strings"
)

// fieldSpec holds the numeric domain and textual aliases of one field kind.
type fieldSpec struct {
	name    string
	min     int
	max     int
	aliases map[string]int

	// wrapMax maps max+1 back to min at parse time (day-of-week "7" = Sunday).
	wrapMax bool
}

var (
	secondField = fieldSpec{name: "second", min: 0, max: 59}
	minuteField = fieldSpec{name: "minute", min: 0, max: 59}
	hourField   = fieldSpec{name: "hour", min: 0, max: 23}
	domField    = fieldSpec{name: "day-of-month", min: 1, max: 31}
	monthField  = fieldSpec{name: "month", min: 1, max: 12, aliases: monthAliases}
	dowField    = fieldSpec{name: "day-of-week", min: 0, max: 6, aliases: dowAliases, wrapMax: true}
	yearField   = fieldSpec{name: "year", min: 1970, max: 2099}
)

var monthAliases = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var dowAliases = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// parseValue resolves a numeric literal or alias within the field's domain.
func (f fieldSpec) parseValue(field, token string) (int, error) {
	if v, ok := f.aliases[strings.ToLower(token)]; ok {
		return v, nil
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, parseErr(f.name, field, "unknown value %q", token)
	}
	if f.wrapMax && v == f.max+1 {
		return f.min, nil
	}
	if v < f.min || v > f.max {
		return 0, parseErr(f.name, field, "value %d out of range [%d,%d]", v, f.min, f.max)
	}
	return v, nil
}

func isWildcard(s string) bool { return s == "*" || s == "?" }

// buildTerm parses one comma-separated list item into a matcher.
// Operator order inside an item: step binds tightest, then range.
func (f fieldSpec) buildTerm(field, item string) (matcher, error) {
	if item == "" {
		return nil, parseErr(f.name, field, "empty list item")
	}

	step := 1
	base := item
	if i := strings.IndexByte(item, '/'); i >= 0 {
		base = item[:i]
		stepText := item[i+1:]
		v, err := strconv.Atoi(stepText)
		if err != nil || v < 1 {
			return nil, parseErr(f.name, field, "invalid step %q", stepText)
		}
		step = v
	}

	var lo, hi int
	switch {
	case isWildcard(base):
		lo, hi = f.min, f.max
	case strings.ContainsRune(base, '-'):
		i := strings.IndexByte(base, '-')
		var err error
		if lo, err = f.parseValue(field, base[:i]); err != nil {
			return nil, err
		}
		if hi, err = f.parseValue(field, base[i+1:]); err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, parseErr(f.name, field, "range start %d after end %d", lo, hi)
		}
	default:
		v, err := f.parseValue(field, base)
		if err != nil {
			return nil, err
		}
		// A stepped singleton keeps its own base as the upper bound, so
		// "6/3" nets out to {6} rather than "every 3rd from 6".
		if step == 1 {
			return valueMatcher{v: v}, nil
		}
		lo, hi = v, v
	}

	if step == 1 && lo == f.min && hi == f.max {
		return alwaysMatcher{}, nil
	}
	return rangeMatcher{lo: lo, hi: hi, step: step}, nil
}

// build parses a full field sub-expression: list items, then range, then step.
func (f fieldSpec) build(field string) (matcher, error) {
	if isWildcard(field) {
		return alwaysMatcher{}, nil
	}
	items := strings.Split(field, ",")
	if len(items) == 1 {
		return f.buildTerm(field, items[0])
	}
	terms := make([]matcher, 0, len(items))
	for _, item := range items {
		m, err := f.buildTerm(field, item)
		if err != nil {
			return nil, err
		}
		terms = append(terms, m)
	}
	return listMatcher{terms: terms}, nil
}

// buildDay parses the day-of-month field, where "L" may appear as a list item.
func (f fieldSpec) buildDay(field string) (dayOfMonthMatcher, error) {
	if isWildcard(field) {
		return dayOfMonthMatcher{any: true}, nil
	}
	var dm dayOfMonthMatcher
	for _, item := range strings.Split(field, ",") {
		if strings.EqualFold(item, "L") {
			dm.last = true
			continue
		}
		m, err := f.buildTerm(field, item)
		if err != nil {
			return dayOfMonthMatcher{}, err
		}
		dm.terms = append(dm.terms, m)
	}
	return dm, nil
}
