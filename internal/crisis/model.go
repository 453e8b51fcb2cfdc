package crisis

import "strings"

// ActionShowResourcesImmediately takes priority over any other category action.
const ActionShowResourcesImmediately = "show_resources_immediately"

// Resource is a support resource offered to a writer.
type Resource struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Type        string `json:"type,omitempty"`
}

// Types splits the underscore-joined tag set. An empty type is "web".
func (r Resource) Types() []string {
	if strings.TrimSpace(r.Type) == "" {
		return []string{"web"}
	}
	var out []string
	for _, t := range strings.Split(r.Type, "_") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	if len(out) == 0 {
		return []string{"web"}
	}
	return out
}

// Category is one named bucket of crisis keywords and its response policy.
type Category struct {
	Key              string     `json:"key"`
	Keywords         []string   `json:"keywords"`
	Level            Level      `json:"level"`
	Action           string     `json:"action,omitempty"`
	Resources        []Resource `json:"resources,omitempty"`
	NotifyModeration bool       `json:"notify_moderation"`
	StoreFlag        bool       `json:"store_flag"`
	UserMessage      string     `json:"user_message,omitempty"`
}

// DetectedCategory records which keywords of a category matched.
type DetectedCategory struct {
	Category        string   `json:"category"`
	Level           Level    `json:"level"`
	MatchedKeywords []string `json:"matchedKeywords"`
}

// AnalysisResult is the classification of one submission attempt.
type AnalysisResult struct {
	HasCrisisContent       bool               `json:"hasCrisisContent"`
	Level                  Level              `json:"level"`
	DetectedCategories     []DetectedCategory `json:"detectedCategories"`
	Resources              []Resource         `json:"resources"`
	UserMessage            string             `json:"userMessage"`
	ShouldNotifyModeration bool               `json:"shouldNotifyModeration"`
	ShouldStoreFlag        bool               `json:"shouldStoreFlag"`
	Action                 string             `json:"action"`
}

// CategoryKeys returns the detected category keys in detection order.
func (r *AnalysisResult) CategoryKeys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.DetectedCategories))
	for _, dc := range r.DetectedCategories {
		keys = append(keys, dc.Category)
	}
	return keys
}

// PrimaryCategory returns the first detected category key, if any.
func (r *AnalysisResult) PrimaryCategory() string {
	if r == nil || len(r.DetectedCategories) == 0 {
		return ""
	}
	return r.DetectedCategories[0].Category
}

func emptyResult() *AnalysisResult {
	return &AnalysisResult{
		DetectedCategories: []DetectedCategory{},
		Resources:          []Resource{},
	}
}
