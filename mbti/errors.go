package mbti

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound reports that the dataset file could not be located.
	ErrSourceNotFound = errors.New("source not found")
	// ErrMalformedSource reports that the dataset could not be parsed into rows and columns.
	ErrMalformedSource = errors.New("malformed source")
	// ErrUnknownType reports a type code outside the canonical set or absent from the loaded table.
	ErrUnknownType = errors.New("unknown type")
	// ErrCountryNotFound reports a country identifier that matches no row.
	ErrCountryNotFound = errors.New("country not found")
)

// SourceError describes a load failure for a dataset file.
type SourceError struct {
	// Path is the file that failed to load, empty for in-memory sources.
	Path string

	// Line is the 1-based CSV line the failure refers to, 0 when not line specific.
	Line int

	// Message describes what went wrong.
	Message string

	// Err is ErrSourceNotFound or ErrMalformedSource, optionally joined with the cause.
	Err error
}

func (e *SourceError) Error() string {
	where := e.Path
	if where == "" {
		where = "source"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", where, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func malformed(path string, line int, cause error, format string, args ...any) *SourceError {
	err := ErrMalformedSource
	if cause != nil {
		err = errors.Join(ErrMalformedSource, cause)
	}
	return &SourceError{
		Path:    path,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func unknownType(code TypeCode) error {
	return fmt.Errorf("%w: %q", ErrUnknownType, string(code))
}

func countryNotFound(country string) error {
	return fmt.Errorf("%w: %q", ErrCountryNotFound, country)
}
