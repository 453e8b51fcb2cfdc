package crisis

import "strings"

const (
	// DefaultUserMessage is shown when no detected category supplies one.
	DefaultUserMessage = "We care about your wellbeing. Please consider reaching out for support."

	// NoResourcesNotice replaces the resource list when none are available.
	NoResourcesNotice = "Resources are loading. Please call 911 if you're in immediate danger."
)

var levelCategories = map[Level][]string{
	LevelCritical: {"immediate_danger", "abuse_violence"},
	LevelHigh:     {"self_harm", "suicidal_ideation", "abuse_violence"},
	LevelMedium:   {"serious_mental_health", "substance_abuse", "hopelessness"},
}

// ResourcesByLevel gathers the resources of the categories prioritized for
// level, deduplicated by URL. Levels without a priority list yield nothing.
func ResourcesByLevel(db *Database, level Level) []Resource {
	out := []Resource{}
	if db == nil {
		return out
	}
	seen := make(map[string]struct{})
	for _, key := range levelCategories[level] {
		i, ok := db.index[key]
		if !ok {
			continue
		}
		for _, r := range db.categories[i].Resources {
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

var displayNames = map[string]string{
	"immediate_danger":      "Immediate Danger",
	"self_harm":             "Self-Harm",
	"suicidal_ideation":     "Suicidal Thoughts",
	"serious_mental_health": "Mental Health Crisis",
	"substance_abuse":       "Substance Abuse",
	"abuse_violence":        "Abuse or Violence",
	"bullying":              "Bullying or Harassment",
	"hopelessness":          "Hopelessness or Despair",
}

// DisplayName returns a human-readable name for a category key. Unknown keys
// are returned unchanged.
func DisplayName(key string) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	return key
}

var typeLabels = map[string]string{
	"phone":     "Call",
	"call":      "Call",
	"text":      "Text",
	"chat":      "Chat",
	"web":       "Website",
	"email":     "Email",
	"emergency": "Emergency",
	"meetings":  "Meetings",
}

// TypeLabel returns the badge label for a single resource type tag. Unknown
// tags are shown upper-cased.
func TypeLabel(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if label, ok := typeLabels[tag]; ok {
		return label
	}
	return strings.ToUpper(tag)
}

// TypeLabels returns the distinct labels for a resource's tag set.
func TypeLabels(r Resource) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range r.Types() {
		label := TypeLabel(t)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
