package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Operator is the closed comparison set usable by condition nodes.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpIsSet       Operator = "is_set"
	OpIsEmpty     Operator = "is_empty"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpRegex       Operator = "regex"
)

// EvalCondition evaluates actual against expected under op. String
// comparison is case-insensitive and trimmed. Numeric operators coerce both
// sides to float64 and fail closed on non-numeric input; so does a regex
// that fails to compile. It never returns an error: a condition that cannot
// be evaluated is false.
func EvalCondition(op Operator, actual, expected string) bool {
	a := strings.TrimSpace(actual)
	b := strings.TrimSpace(expected)

	switch op {
	case OpEquals:
		return strings.EqualFold(a, b)
	case OpNotEquals:
		return !strings.EqualFold(a, b)
	case OpContains:
		return strings.Contains(strings.ToLower(a), strings.ToLower(b))
	case OpIsSet:
		return a != ""
	case OpIsEmpty:
		return a == ""
	case OpGreaterThan:
		af, bf, ok := parseBoth(a, b)
		return ok && af > bf
	case OpLessThan:
		af, bf, ok := parseBoth(a, b)
		return ok && af < bf
	case OpRegex:
		re, err := regexp.Compile("(?i)" + b)
		if err != nil {
			return false
		}
		return re.MatchString(a)
	}
	return false
}

func parseBoth(a, b string) (float64, float64, bool) {
	af, errA := strconv.ParseFloat(a, 64)
	bf, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return af, bf, true
}
