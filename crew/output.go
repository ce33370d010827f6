package crew

import (
	"github.com/kadirpekel/crewcore/llms"
	"github.com/kadirpekel/crewcore/task"
)

// UsageSummary is the external-facing usage shape from spec.md §6
// ("Output format").
type UsageSummary struct {
	PromptTokens       int `json:"prompt_tokens"`
	CompletionTokens   int `json:"completion_tokens"`
	CachedPromptTokens int `json:"cached_prompt_tokens"`
	SuccessfulRequests int `json:"successful_requests"`
	TotalTokens        int `json:"total_tokens"`
}

func summaryFrom(u llms.Usage, successfulRequests int) UsageSummary {
	return UsageSummary{
		PromptTokens:       u.PromptTokens,
		CompletionTokens:   u.CompletionTokens,
		CachedPromptTokens: u.CachedPromptTokens,
		SuccessfulRequests: successfulRequests,
		TotalTokens:        u.TotalTokens,
	}
}

// CrewOutput is the final result of a crew run, per spec.md §3
// ("CrewOutput") and §6 ("Output format").
type CrewOutput struct {
	Raw         string        `json:"raw"`
	TaskOutputs []task.Output `json:"task_outputs"`
	Usage       UsageSummary  `json:"usage"`
}
