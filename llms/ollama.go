package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kadirpekel/crewcore/config"
)

// OllamaProvider is the one reference Provider implementation this package
// ships, grounded on the teacher's llms/ollama.go: plain net/http against
// Ollama's /api/chat, no streaming transport beyond what ACall fakes with a
// goroutine. Concrete providers for hosted APIs (Anthropic, OpenAI, ...) are
// out of scope per spec.md §1; this one exists to exercise Provider,
// resolve.go, and the rest of the abstraction end-to-end against a runnable
// local backend.
type OllamaProvider struct {
	cfg        config.LLMProviderConfig
	httpClient *http.Client
	baseURL    string
}

func NewOllamaProvider(cfg config.LLMProviderConfig) *OllamaProvider {
	cfg.SetDefaults()
	return &OllamaProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.Host, "/"),
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) SupportsFunctionCalling() bool { return p.cfg.SupportsFunctions }
func (p *OllamaProvider) SupportsStopWords() bool       { return p.cfg.SupportsStopWords }
func (p *OllamaProvider) SupportsMultimodal() bool      { return p.cfg.SupportsMultimodal }
func (p *OllamaProvider) GetContextWindowSize() int     { return p.cfg.ContextWindow }

type ollamaMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  []ollamaToolCal `json:"tool_calls,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolCallID string          `json:"-"`
}

type ollamaToolCal struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type ollamaRequest struct {
	Model      string          `json:"model"`
	Messages   []ollamaMessage `json:"messages"`
	Stream     bool            `json:"stream"`
	Options    *ollamaOptions  `json:"options,omitempty"`
	Tools      []ollamaTool    `json:"tools,omitempty"`
	ToolChoice string          `json:"tool_choice,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content   string          `json:"content"`
		ToolCalls []ollamaToolCal `json:"tool_calls"`
	} `json:"message"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

func (p *OllamaProvider) Call(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) (Response, error) {
	req := ollamaRequest{
		Model:    p.cfg.Model,
		Messages: toOllamaMessages(messages),
		Options: &ollamaOptions{
			Temperature: coalesce(opts.Temperature, p.cfg.Temperature),
			NumPredict:  coalesceInt(opts.MaxTokens, p.cfg.MaxTokens),
			TopP:        opts.TopP,
		},
	}
	if len(tools) > 0 {
		req.Tools = toOllamaTools(tools)
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, &Error{Provider: "ollama", Kind: ErrPermanent, Message: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, &Error{Provider: "ollama", Kind: ErrPermanent, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, &Error{Provider: "ollama", Kind: ErrTransient, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &Error{Provider: "ollama", Kind: ErrTransient, Message: "read response", Err: err}
	}
	if resp.StatusCode >= 500 {
		return Response{}, &Error{Provider: "ollama", Kind: ErrTransient, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, raw)}
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, &Error{Provider: "ollama", Kind: ErrPermanent, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, raw)}
	}

	var oresp ollamaResponse
	if err := json.Unmarshal(raw, &oresp); err != nil {
		return Response{}, &Error{Provider: "ollama", Kind: ErrPermanent, Message: "decode response", Err: err}
	}
	if oresp.Error != "" {
		return Response{}, &Error{Provider: "ollama", Kind: ErrPermanent, Message: oresp.Error}
	}

	out := Response{
		Text: oresp.Message.Content,
		Usage: Usage{
			PromptTokens:     oresp.PromptEvalCount,
			CompletionTokens: oresp.EvalCount,
			TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
		},
	}
	for _, tc := range oresp.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return ApplyStopWords(p, out, opts.Stop), nil
}

func (p *OllamaProvider) ACall(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		resp, err := p.Call(ctx, messages, tools, opts)
		ch <- AsyncResult{Response: resp, Err: err}
	}()
	return ch
}

func toOllamaMessages(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		om := ollamaMessage{Role: m.Role, Content: m.Content}
		if m.Role == "tool" {
			om.ToolName = m.Name
		}
		for _, tc := range m.ToolCalls {
			var call ollamaToolCal
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			om.ToolCalls = append(om.ToolCalls, call)
		}
		out = append(out, om)
	}
	return out
}

func toOllamaTools(tools []ToolDefinition) []ollamaTool {
	out := make([]ollamaTool, len(tools))
	for i, t := range tools {
		out[i].Type = "function"
		out[i].Function.Name = t.Name
		out[i].Function.Description = t.Description
		out[i].Function.Parameters = t.Parameters
	}
	return out
}

func coalesce(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func coalesceInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
