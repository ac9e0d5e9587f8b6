// Package check provides simple validation helpers. Each helper returns an
// error describing the failed expectation, or nil, so that Validatable
// implementations can list their field checks declaratively.
package check

import (
	"fmt"
	"strings"
)

func check(condition bool, msgAndArgs []interface{}, internalMsg string, args ...interface{}) error {
	if condition {
		return nil
	}
	msg := fmt.Sprintf(internalMsg, args...)
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok {
			msg = fmt.Sprintf(format, msgAndArgs[1:]...) + ": " + msg
		}
	}
	return fmt.Errorf("%s", msg)
}

// True checks whether the condition is true.
func True(condition bool, msgAndArgs ...interface{}) error {
	return check(condition, msgAndArgs, "expected true, got false")
}

// NotEmpty checks whether the string is non-empty.
func NotEmpty(s string, msgAndArgs ...interface{}) error {
	return check(strings.TrimSpace(s) != "", msgAndArgs, "expected a non-empty value")
}

// GreaterThanOrEqualTo checks whether actual >= expected.
func GreaterThanOrEqualTo(actual, expected float64, msgAndArgs ...interface{}) error {
	return check(actual >= expected, msgAndArgs,
		"%v is not greater than or equal to %v", actual, expected)
}

// BetweenInclusive checks whether lower <= actual <= upper.
func BetweenInclusive(actual, lower, upper float64, msgAndArgs ...interface{}) error {
	return check(lower <= actual && actual <= upper, msgAndArgs,
		"%v is not between %v and %v", actual, lower, upper)
}

// In checks whether the value is one of the allowed choices.
func In(value string, choices []string, msgAndArgs ...interface{}) error {
	for _, choice := range choices {
		if value == choice {
			return nil
		}
	}
	return check(false, msgAndArgs, "%q is not in %v", value, choices)
}
