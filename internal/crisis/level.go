package crisis

import (
	"encoding/json"
	"strings"
)

// Level is the severity of a crisis category. The zero value means no level.
type Level string

const (
	LevelNone     Level = ""
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var levelRank = map[Level]int{
	LevelLow:      1,
	LevelMedium:   2,
	LevelHigh:     3,
	LevelCritical: 4,
}

// ParseLevel normalizes s and reports whether it names a known level.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	_, ok := levelRank[l]
	return l, ok
}

// Rank orders levels: critical > high > medium > low > none.
func (l Level) Rank() int {
	return levelRank[l]
}

// Valid reports whether l is one of the four severities.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// MoreSevere reports whether l outranks other.
func (l Level) MoreSevere(other Level) bool {
	return l.Rank() > other.Rank()
}

func (l Level) String() string {
	return string(l)
}

// MarshalJSON encodes LevelNone as null.
func (l Level) MarshalJSON() ([]byte, error) {
	if l == LevelNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(l))
}

// UnmarshalJSON accepts null and case-insensitive level names.
func (l *Level) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = LevelNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = Level(strings.ToLower(strings.TrimSpace(s)))
	return nil
}
