package cronexpr

import "time"

// matcher answers whether an integer satisfies one field's constraint.
// Matchers are immutable once built.
type matcher interface {
	match(v int) bool
}

type alwaysMatcher struct{}

func (alwaysMatcher) match(int) bool { return true }

type valueMatcher struct{ v int }

func (m valueMatcher) match(v int) bool { return v == m.v }

// rangeMatcher accepts lo, lo+step, lo+2*step, ... up to hi.
// A plain "a-b" range is step 1; a stepped singleton "6/3" is lo==hi==6.
type rangeMatcher struct{ lo, hi, step int }

func (m rangeMatcher) match(v int) bool {
	if v < m.lo || v > m.hi {
		return false
	}
	return (v-m.lo)%m.step == 0
}

// listMatcher ORs its terms ("2,3,6/3").
type listMatcher struct{ terms []matcher }

func (m listMatcher) match(v int) bool {
	for _, t := range m.terms {
		if t.match(v) {
			return true
		}
	}
	return false
}

// dayOfMonthMatcher is the one field matcher that cannot decide on a bare
// integer: resolving "L" needs the month and the leap-year flag.
type dayOfMonthMatcher struct {
	terms []matcher
	any   bool
	last  bool
}

func (m dayOfMonthMatcher) matchDay(day int, month time.Month, leap bool) bool {
	if m.any {
		return true
	}
	if m.last && day == lastDayOfMonth(month, leap) {
		return true
	}
	for _, t := range m.terms {
		if t.match(day) {
			return true
		}
	}
	return false
}

var monthDays = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func lastDayOfMonth(month time.Month, leap bool) int {
	if month == time.February && leap {
		return 29
	}
	if month < time.January || month > time.December {
		return 0
	}
	return monthDays[month]
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
