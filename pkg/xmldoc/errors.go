package xmldoc

import "gitlab.com/tozd/go/errors"

// ParseError is a hard parse failure: the document is not well formed or lacks
// an element nothing useful can be derived without.
type ParseError struct {
	Element string
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	msg := "parsing xml"
	if e.Element != "" {
		msg += " <" + e.Element + ">"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Missing reports a structurally mandatory element that is absent.
func Missing(element string) error {
	return errors.WithStack(&ParseError{Element: element, Reason: "missing mandatory element"})
}

// IsParseError reports whether err wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
