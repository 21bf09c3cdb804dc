package httpresponse

import "fmt"

// ParseError reports a raw response that could not be split into a status
// line, headers and body.
type ParseError struct {
	Reason string
	Line   string
}

func (e *ParseError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("parse response: %s", e.Reason)
	}
	return fmt.Sprintf("parse response: %s: %q", e.Reason, e.Line)
}

func parseErr(reason, line string) error {
	return &ParseError{Reason: reason, Line: line}
}
