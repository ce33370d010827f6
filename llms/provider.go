package llms

import "context"

// Provider is the collaborator contract from spec.md §6 ("LLM provider
// contract"): request shaping plus capability queries. Concrete
// implementations (provider HTTP clients) are out of scope for the
// execution core; this package ships one reference implementation
// (OllamaProvider, in ollama.go) that talks to a local Ollama server over
// plain net/http, the way the teacher's llms/ollama.go does.
type Provider interface {
	// Call issues a single request. tools is nil/empty in text-parsed
	// (ReAct) mode; when non-empty and SupportsFunctionCalling is true, the
	// provider is expected to return ToolCalls in the response instead of
	// (or alongside) text.
	Call(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) (Response, error)

	// ACall is the asynchronous twin. A synchronous provider may implement
	// this by running Call on a goroutine and returning a channel, the way
	// OllamaProvider does here.
	ACall(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) <-chan AsyncResult

	SupportsFunctionCalling() bool
	SupportsStopWords() bool
	SupportsMultimodal() bool
	GetContextWindowSize() int

	// Name identifies the provider for error messages and provider
	// resolution (resolve.go).
	Name() string
}

// AsyncResult is delivered on the channel returned by Provider.ACall.
type AsyncResult struct {
	Response Response
	Err      error
}

// CallOptions carries the provider-agnostic tuning knobs from
// spec.md §4.3, mirrored from config.LLMProviderConfig at call time so a
// single provider instance can serve calls with per-call overrides.
type CallOptions struct {
	Temperature         float64
	TopP                float64
	MaxTokens           int
	MaxCompletionTokens int
	ReasoningEffort     string
	ResponseFormat      string
	Seed                *int64
	Stream              bool
	Stop                []string
	Extra               map[string]any
}

// GetUsableContextWindowSize returns 85% of the provider's context window,
// floored/ceiled to [min, max], per spec.md §4.3.
func GetUsableContextWindowSize(p Provider, min, max int) int {
	window := p.GetContextWindowSize()
	usable := (window * 85) / 100
	if min > 0 && usable < min {
		usable = min
	}
	if max > 0 && usable > max {
		usable = max
	}
	return usable
}
