package cronexpr

import (
	"fmt"
	"strings"
	"time"
)

// AlternationDelimiter joins complete expressions into one pattern
// ("0 9 * * 1-5 | 0 9 * * 6" fires weekdays and Saturdays at 09:00).
const AlternationDelimiter = "|"

// alternative holds exactly one matcher per field. The per-field slots are
// index-aligned across a pattern's alternatives.
type alternative struct {
	second  matcher
	minute  matcher
	hour    matcher
	day     dayOfMonthMatcher
	month   matcher
	weekday matcher
	year    matcher
}

func (a alternative) matches(t time.Time, matchSeconds bool) bool {
	if matchSeconds && !a.second.match(t.Second()) {
		return false
	}
	return a.minute.match(t.Minute()) &&
		a.hour.match(t.Hour()) &&
		a.day.matchDay(t.Day(), t.Month(), isLeapYear(t.Year())) &&
		a.month.match(int(t.Month())) &&
		a.weekday.match(int(t.Weekday())) &&
		a.year.match(t.Year())
}

// Pattern is the parsed, immutable form of one cron expression.
type Pattern struct {
	text string
	alts []alternative
}

type options struct {
	wildcardSeconds bool
}

// Option configures parsing.
type Option func(*options)

// WithWildcardSeconds makes 5-field expressions match every second of a
// matching minute instead of anchoring to the parse-time second.
func WithWildcardSeconds() Option {
	return func(o *options) { o.wildcardSeconds = true }
}

// Parse builds a Pattern from text, anchoring 5-field seconds to the current
// wall-clock second. See ParseAt for deterministic parsing.
func Parse(text string, opts ...Option) (*Pattern, error) {
	return ParseAt(text, time.Now(), opts...)
}

// ParseAt builds a Pattern from text, using at as the parse-time instant for
// the 5-field anchor-second rule. The returned Pattern echoes text verbatim
// from String().
func ParseAt(text string, at time.Time, opts ...Option) (*Pattern, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pattern{text: text}
	for _, expr := range strings.Split(text, AlternationDelimiter) {
		alt, err := parseAlternative(strings.TrimSpace(expr), at, o)
		if err != nil {
			return nil, err
		}
		p.alts = append(p.alts, alt)
	}
	return p, nil
}

func parseAlternative(expr string, at time.Time, o options) (alternative, error) {
	fields := strings.Fields(expr)
	if len(fields) < 5 || len(fields) > 7 {
		return alternative{}, fmt.Errorf("cronexpr: expression %q must be 5-7 fields, got %d", expr, len(fields))
	}

	var alt alternative
	var err error

	rest := fields
	switch len(fields) {
	case 5:
		// No seconds field: anchor to the parse-time second, so the pattern
		// fires once per matching minute at that exact second.
		if o.wildcardSeconds {
			alt.second = alwaysMatcher{}
		} else {
			alt.second = valueMatcher{v: at.Second()}
		}
	default:
		if alt.second, err = secondField.build(fields[0]); err != nil {
			return alternative{}, err
		}
		rest = fields[1:]
	}

	if alt.minute, err = minuteField.build(rest[0]); err != nil {
		return alternative{}, err
	}
	if alt.hour, err = hourField.build(rest[1]); err != nil {
		return alternative{}, err
	}
	if alt.day, err = domField.buildDay(rest[2]); err != nil {
		return alternative{}, err
	}
	if alt.month, err = monthField.build(rest[3]); err != nil {
		return alternative{}, err
	}
	if alt.weekday, err = dowField.build(rest[4]); err != nil {
		return alternative{}, err
	}

	if len(fields) == 7 {
		if alt.year, err = yearField.build(rest[5]); err != nil {
			return alternative{}, err
		}
	} else {
		alt.year = alwaysMatcher{}
	}
	return alt, nil
}

// Matches reports whether t satisfies the pattern: OR across alternatives,
// AND across the fields of each alternative. The seconds field participates
// only when matchSeconds is set.
func (p *Pattern) Matches(t time.Time, matchSeconds bool) bool {
	for _, alt := range p.alts {
		if alt.matches(t, matchSeconds) {
			return true
		}
	}
	return false
}

// Alternatives returns how many OR-joined expressions the pattern holds.
func (p *Pattern) Alternatives() int { return len(p.alts) }

// String returns the source expression exactly as given to Parse.
func (p *Pattern) String() string { return p.text }
