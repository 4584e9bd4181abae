package rules

import (
	"regexp"
	"strconv"
	"time"
)

// Comparator grammars shared by the evaluator and the rule validator. The
// validator rejects strings that do not match these patterns at parse time,
// so the false-on-mismatch behavior below is never hit by a validated rule.
const (
	NumericComparatorPattern = `^(<|>|<=|>=|=)?\s?(\d+)$`
	DateComparatorPattern    = `^(<|>|<=|>=)?\s?(\d+)\s(minute|hour|day|week|month|year)s?$`
)

var (
	numericComparatorRe = regexp.MustCompile(NumericComparatorPattern)
	dateComparatorRe    = regexp.MustCompile(DateComparatorPattern)
)

// overridable in tests
var timeNow = time.Now

// MeetsNumericThreshold evaluates a numeric comparator string such as
// "> 100" against input. A missing operator means equality. Malformed
// threshold strings evaluate to false rather than erroring.
func MeetsNumericThreshold(input int, threshold string) bool {
	matches := numericComparatorRe.FindStringSubmatch(threshold)
	if matches == nil {
		return false
	}

	value, err := strconv.Atoi(matches[2])
	if err != nil {
		return false
	}

	switch matches[1] {
	case "", "=":
		return input == value
	case "<":
		return input < value
	case "<=":
		return input <= value
	case ">":
		return input > value
	case ">=":
		return input >= value
	default:
		return false
	}
}

// MeetsDateThreshold evaluates a relative-date comparator string such as
// "< 10 days" against input. The unit count is subtracted from the current
// time to produce the comparison instant; "<" therefore means "input is more
// recent than N units ago". When the string carries no operator,
// defaultOperator is used instead; if that is also empty the result is false.
func MeetsDateThreshold(input time.Time, threshold string, defaultOperator string) bool {
	matches := dateComparatorRe.FindStringSubmatch(threshold)
	if matches == nil {
		return false
	}

	operator := matches[1]
	if operator == "" {
		operator = defaultOperator
	}

	value, err := strconv.Atoi(matches[2])
	if err != nil {
		return false
	}

	now := timeNow()
	var cutoff time.Time
	switch matches[3] {
	case "minute":
		cutoff = now.Add(-time.Duration(value) * time.Minute)
	case "hour":
		cutoff = now.Add(-time.Duration(value) * time.Hour)
	case "day":
		cutoff = now.AddDate(0, 0, -value)
	case "week":
		cutoff = now.AddDate(0, 0, -7*value)
	case "month":
		cutoff = now.AddDate(0, -value, 0)
	case "year":
		cutoff = now.AddDate(-value, 0, 0)
	default:
		return false
	}

	switch operator {
	case "<":
		return cutoff.Before(input)
	case "<=":
		return !cutoff.After(input)
	case ">":
		return cutoff.After(input)
	case ">=":
		return !cutoff.Before(input)
	default:
		return false
	}
}
