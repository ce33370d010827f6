package llms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateAtStopWord_TruncatesAtEarliestOccurrence(t *testing.T) {
	out := TruncateAtStopWord("hello STOP world END", []string{"END", "STOP"})
	assert.Equal(t, "hello ", out)
}

func TestTruncateAtStopWord_NoMatchReturnsUnchanged(t *testing.T) {
	out := TruncateAtStopWord("hello world", []string{"STOP"})
	assert.Equal(t, "hello world", out)
}

func TestTruncateAtStopWord_EmptyStopListReturnsUnchanged(t *testing.T) {
	out := TruncateAtStopWord("hello world", nil)
	assert.Equal(t, "hello world", out)
}

type stubProvider struct{ supportsStop bool }

func (s stubProvider) Call(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) (Response, error) {
	return Response{}, nil
}
func (s stubProvider) ACall(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) <-chan AsyncResult {
	return nil
}
func (s stubProvider) SupportsFunctionCalling() bool { return false }
func (s stubProvider) SupportsStopWords() bool       { return s.supportsStop }
func (s stubProvider) SupportsMultimodal() bool      { return false }
func (s stubProvider) GetContextWindowSize() int     { return 8192 }
func (s stubProvider) Name() string                  { return "stub" }

func TestApplyStopWords_TruncatesWhenProviderLacksSupport(t *testing.T) {
	resp := Response{Text: "answer STOP extra"}
	out := ApplyStopWords(stubProvider{supportsStop: false}, resp, []string{"STOP"})
	assert.Equal(t, "answer ", out.Text)
}

func TestApplyStopWords_TrustsProviderWhenSupported(t *testing.T) {
	resp := Response{Text: "answer STOP extra"}
	out := ApplyStopWords(stubProvider{supportsStop: true}, resp, []string{"STOP"})
	assert.Equal(t, "answer STOP extra", out.Text)
}

func TestGetUsableContextWindowSize_85PercentFlooredCeiled(t *testing.T) {
	p := stubProvider{}
	// 8192 * 0.85 = 6963.2 -> 6963
	assert.Equal(t, 6963, GetUsableContextWindowSize(p, 0, 0))
	assert.Equal(t, 7000, GetUsableContextWindowSize(p, 7000, 0))
	assert.Equal(t, 5000, GetUsableContextWindowSize(p, 0, 5000))
}
