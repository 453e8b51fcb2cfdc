package crisis

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// text is a submission prepared for matching.
type text struct {
	full   string
	tokens []string
	set    map[string]struct{}
}

func newText(title, content string) text {
	full := normalize(title + " " + content)
	tokens := tokenize(full)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return text{full: full, tokens: tokens, set: set}
}

// normalize composes, lower-cases and trims s.
func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// tokenize replaces punctuation with whitespace and splits on whitespace.
// Letters, digits and underscores are kept.
func tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		if unicode.IsMark(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Fields(cleaned)
}

func (t text) hasToken(tok string) bool {
	_, ok := t.set[tok]
	return ok
}

// hasRun reports whether run appears as consecutive tokens.
func (t text) hasRun(run []string) bool {
	switch len(run) {
	case 0:
		return false
	case 1:
		return t.hasToken(run[0])
	}
	if !t.hasToken(run[0]) {
		return false
	}
	for i := 0; i+len(run) <= len(t.tokens); i++ {
		match := true
		for j, tok := range run {
			if t.tokens[i+j] != tok {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
