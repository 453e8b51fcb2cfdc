package letters

import "errors"

var (
	// ErrMissingCategory is returned when a draft has no emotion category.
	ErrMissingCategory = errors.New("letters: category is required")

	// ErrEmptyContent is returned when the letter body is blank.
	ErrEmptyContent = errors.New("letters: content is required")

	// ErrContentTooLong is returned when the body exceeds MaxContentLength characters.
	ErrContentTooLong = errors.New("letters: content exceeds the character limit")

	// ErrLetterNotFound is returned when a letter is not found
	ErrLetterNotFound = errors.New("letters: letter not found")
)

// IsValidationError reports whether err came from Draft.Validate.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingCategory) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrContentTooLong)
}
