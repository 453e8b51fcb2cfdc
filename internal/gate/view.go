package gate

import (
	"fmt"

	"github.com/wolfman30/whisperbox/internal/crisis"
)

// TopResourceCount is how many resources are shown before the expansion.
const TopResourceCount = 3

const (
	emergencyLinkLabel = "Get Help Now"
	standardLinkLabel  = "Learn More & Get Help"

	proceedLabel = "Continue Posting"
	abandonLabel = "Close Without Posting"
)

// ResourceView is one resource as it should be rendered.
type ResourceView struct {
	crisis.Resource
	Labels    []string `json:"labels"`
	LinkLabel string   `json:"linkLabel"`
	Emergency bool     `json:"emergency"`
}

// View is everything a client needs to render the resource prompt.
type View struct {
	Message       string         `json:"message"`
	Level         crisis.Level   `json:"level"`
	Category      string         `json:"category,omitempty"`
	CategoryName  string         `json:"categoryName,omitempty"`
	Emergency     bool           `json:"emergency"`
	Resources     []ResourceView `json:"resources"`
	MoreResources []ResourceView `json:"moreResources,omitempty"`
	MoreLabel     string         `json:"moreLabel,omitempty"`
	Notice        string         `json:"notice,omitempty"`
	ProceedLabel  string         `json:"proceedLabel"`
	AbandonLabel  string         `json:"abandonLabel"`
}

// BuildView renders an analysis result. Resource order is preserved.
func BuildView(result *crisis.AnalysisResult) View {
	v := View{
		Message:      crisis.DefaultUserMessage,
		Resources:    []ResourceView{},
		ProceedLabel: proceedLabel,
		AbandonLabel: abandonLabel,
	}
	if result == nil {
		v.Notice = crisis.NoResourcesNotice
		return v
	}

	if result.UserMessage != "" {
		v.Message = result.UserMessage
	}
	v.Level = result.Level
	v.Emergency = result.Level == crisis.LevelCritical
	if primary := result.PrimaryCategory(); primary != "" {
		v.Category = primary
		v.CategoryName = crisis.DisplayName(primary)
	}

	if len(result.Resources) == 0 {
		v.Notice = crisis.NoResourcesNotice
		return v
	}
	for i, r := range result.Resources {
		rv := resourceView(r, v.Emergency)
		if i < TopResourceCount {
			v.Resources = append(v.Resources, rv)
			continue
		}
		v.MoreResources = append(v.MoreResources, rv)
	}
	if n := len(v.MoreResources); n > 0 {
		v.MoreLabel = fmt.Sprintf("View %d More Resources", n)
	}
	return v
}

func resourceView(r crisis.Resource, emergency bool) ResourceView {
	link := standardLinkLabel
	if emergency {
		link = emergencyLinkLabel
	}
	return ResourceView{
		Resource:  r,
		Labels:    crisis.TypeLabels(r),
		LinkLabel: link,
		Emergency: emergency,
	}
}
