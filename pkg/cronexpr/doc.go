// Package cronexpr parses and evaluates crontab-like expressions.
//
// # Grammar
//
// An expression is one or more alternatives joined by "|" (logical OR).
// Each alternative is a whitespace-separated list of 5, 6 or 7 fields:
//
//	5 fields:  minute hour day-of-month month day-of-week
//	6 fields:  second minute hour day-of-month month day-of-week
//	7 fields:  second minute hour day-of-month month day-of-week year
//
// Fields accept "*" and "?" (any), single values, "a-b" ranges, "a/b" steps,
// comma lists, and case-insensitive month/weekday names ("JAN", "mon", ...).
// The day-of-month field additionally accepts "L" (last day of the month).
// Day-of-week runs 0=Sunday..6=Saturday; 7 is accepted as a Sunday alias.
//
// Inside one field, steps bind tighter than ranges, which bind tighter than
// lists: "2,3,6/3" decomposes into {2, 3, 6-stepped-by-3} and accepts exactly
// the values 2, 3 and 6.
//
// # Seconds in 5-field expressions
//
// A 5-field expression carries no seconds field. Instead of widening it to
// "any second", Parse anchors the seconds matcher to the wall-clock second
// observed at parse time: the pattern fires once per matching minute, at that
// same second. This keeps registration-order determinism (two patterns
// registered in the same second fire together) but surprises callers
// expecting conventional crontab behavior; use WithWildcardSeconds to opt out,
// or supply 6 fields for an explicit seconds matcher.
//
// Evaluation is whole-second: Pattern.Matches answers whether a given instant
// satisfies the expression, it never enumerates future instants. Schedule
// adapts a Pattern to robfig/cron's Schedule interface for hosts that want
// "next activation" semantics.
package cronexpr
