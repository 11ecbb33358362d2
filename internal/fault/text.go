package fault

import "strings"

// Message collapses err into a single line suitable for summaries.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize collapses all whitespace runs into single spaces.
func Sanitize(msg string) string {
	s := strings.Join(strings.Fields(msg), " ")
	if s == "" {
		return "error"
	}
	return s
}
