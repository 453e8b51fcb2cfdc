package letters

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxContentLength is the longest letter body accepted, in characters.
	MaxContentLength = 2000

	// DefaultTitle is used when the author leaves the title blank.
	DefaultTitle = "Untitled Letter"

	guestHandle = "guest"
)

// Letter is a published anonymous letter. AuthorID is kept for moderation
// and deletion only and is never serialized to readers.
type Letter struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Category        string    `json:"category"`
	AuthorID        string    `json:"-"`
	AnonymousHandle string    `json:"anonymous_handle"`
	CreatedAt       time.Time `json:"created_at"`
}

// Draft is a letter the author has submitted but that is not yet posted.
type Draft struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	Category           string `json:"category"`
	AuthorID           string `json:"author_id,omitempty"`
	AnonymousHandle    string `json:"anonymous_handle,omitempty"`
	StoreCrisisHistory bool   `json:"store_crisis_history,omitempty"`
}

// Normalize trims the draft and fills the default title and handle.
func (d *Draft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		d.Title = DefaultTitle
	}
	d.Content = strings.TrimSpace(d.Content)
	d.Category = strings.TrimSpace(d.Category)
	d.AuthorID = strings.TrimSpace(d.AuthorID)
	d.AnonymousHandle = strings.TrimSpace(d.AnonymousHandle)
	if d.AnonymousHandle == "" {
		d.AnonymousHandle = defaultHandle(d.AuthorID)
	}
}

// Validate checks a normalized draft.
func (d *Draft) Validate() error {
	if d.Category == "" {
		return ErrMissingCategory
	}
	if d.Content == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(d.Content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

func defaultHandle(authorID string) string {
	if authorID == "" {
		return guestHandle
	}
	runes := []rune(authorID)
	if len(runes) > 6 {
		runes = runes[:6]
	}
	return "user-" + string(runes)
}
