package crisis

import "errors"

var (
	// ErrEmptyDocument is returned when a keyword source yields no bytes.
	ErrEmptyDocument = errors.New("crisis: keyword document is empty")

	// ErrInvalidDocument is returned when a keyword document is not a mapping.
	ErrInvalidDocument = errors.New("crisis: invalid keyword document")

	// ErrUnsupportedSource is returned for keyword locations no source can read.
	ErrUnsupportedSource = errors.New("crisis: unsupported keyword source")
)
