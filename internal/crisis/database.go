package crisis

import (
	"context"
	"regexp"
	"strings"
)

// Database is the ordered, read-only set of crisis categories.
// Iteration order is load order and decides tie-breaks during analysis.
type Database struct {
	categories []*compiledCategory
	index      map[string]int
	skipped    []SkippedCategory
}

// SkippedCategory is a category dropped while parsing a keyword document.
type SkippedCategory struct {
	Key    string
	Reason string
}

type compiledCategory struct {
	Category
	phrases []phraseMatcher
	words   []wordMatcher
}

type phraseMatcher struct {
	keyword string
	re      *regexp.Regexp
}

type wordMatcher struct {
	keyword string
	run     []string
}

// NewDatabase compiles categories in the given order. A repeated key keeps its
// first position and takes the later definition.
func NewDatabase(categories ...Category) *Database {
	db := &Database{index: make(map[string]int, len(categories))}
	for _, c := range categories {
		db.add(c)
	}
	return db
}

// EmptyDatabase never flags content.
func EmptyDatabase() *Database {
	return NewDatabase()
}

func (db *Database) add(c Category) {
	compiled := compile(c)
	if i, ok := db.index[c.Key]; ok {
		db.categories[i] = compiled
		return
	}
	db.index[c.Key] = len(db.categories)
	db.categories = append(db.categories, compiled)
}

func compile(c Category) *compiledCategory {
	cc := &compiledCategory{Category: c}
	cc.Keywords = append([]string(nil), c.Keywords...)
	cc.Resources = append([]Resource(nil), c.Resources...)
	for _, kw := range c.Keywords {
		trimmed := strings.TrimSpace(kw)
		if trimmed == "" {
			continue
		}
		if strings.ContainsAny(trimmed, " \t\n\r") {
			cc.phrases = append(cc.phrases, phraseMatcher{keyword: kw, re: phraseRegexp(trimmed)})
			continue
		}
		run := tokenize(normalize(trimmed))
		if len(run) == 0 {
			continue
		}
		cc.words = append(cc.words, wordMatcher{keyword: kw, run: run})
	}
	return cc
}

// phraseRegexp lets each internal space match one or more whitespace characters,
// including Unicode separators such as NBSP.
func phraseRegexp(phrase string) *regexp.Regexp {
	parts := strings.Fields(normalize(phrase))
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, `[\s\p{Z}]+`))
}

// match returns the matched keywords, phrases first, in keyword order.
func (c *compiledCategory) match(t text) []string {
	var matched []string
	for _, p := range c.phrases {
		if p.re.MatchString(t.full) {
			matched = append(matched, p.keyword)
		}
	}
	for _, w := range c.words {
		if t.hasRun(w.run) {
			matched = append(matched, w.keyword)
		}
	}
	return matched
}

// Len reports the number of categories.
func (db *Database) Len() int {
	if db == nil {
		return 0
	}
	return len(db.categories)
}

// Keys returns category keys in iteration order.
func (db *Database) Keys() []string {
	if db == nil {
		return nil
	}
	keys := make([]string, 0, len(db.categories))
	for _, c := range db.categories {
		keys = append(keys, c.Key)
	}
	return keys
}

// Category returns a copy of the category with the given key.
func (db *Database) Category(key string) (Category, bool) {
	if db == nil {
		return Category{}, false
	}
	i, ok := db.index[key]
	if !ok {
		return Category{}, false
	}
	return db.categories[i].clone(), true
}

// Categories returns copies of all categories in iteration order.
func (db *Database) Categories() []Category {
	if db == nil {
		return nil
	}
	out := make([]Category, 0, len(db.categories))
	for _, c := range db.categories {
		out = append(out, c.clone())
	}
	return out
}

// Skipped lists categories that failed validation during parsing.
func (db *Database) Skipped() []SkippedCategory {
	if db == nil {
		return nil
	}
	return append([]SkippedCategory(nil), db.skipped...)
}

// Database lets a fixed Database serve as its own provider.
func (db *Database) Database(_ context.Context) *Database {
	return db
}

func (c *compiledCategory) clone() Category {
	out := c.Category
	out.Keywords = append([]string(nil), c.Keywords...)
	out.Resources = append([]Resource(nil), c.Resources...)
	return out
}
