package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReAct_ActionAndInput(t *testing.T) {
	text := "Thought: I'll use echo.\nAction: echo\nAction Input: {\"text\": \"hello\"}"
	parsed, ok := ParseReAct(text)
	require.True(t, ok)
	assert.False(t, parsed.IsFinal)
	assert.Equal(t, "I'll use echo.", parsed.Thought)
	assert.Equal(t, "echo", parsed.ToolName)
	assert.Equal(t, `{"text": "hello"}`, parsed.RawInput)
}

func TestParseReAct_FinalAnswer(t *testing.T) {
	parsed, ok := ParseReAct("Thought: got it.\nFinal Answer: hello")
	require.True(t, ok)
	assert.True(t, parsed.IsFinal)
	assert.Equal(t, "hello", parsed.FinalAnswer)
}

// Boundary from spec.md §8: text containing both "Action:" and
// "Final Answer:" must resolve to Final Answer.
func TestParseReAct_FinalAnswerWinsOverAction(t *testing.T) {
	text := "Thought: reconsidering\nAction: search\nAction Input: {}\nFinal Answer: done anyway"
	parsed, ok := ParseReAct(text)
	require.True(t, ok)
	assert.True(t, parsed.IsFinal)
	assert.Equal(t, "done anyway", parsed.FinalAnswer)
}

func TestParseReAct_CaseInsensitiveAndWhitespaceTolerant(t *testing.T) {
	parsed, ok := ParseReAct("Thought: x\nfinal   answer :   yes")
	require.True(t, ok)
	assert.True(t, parsed.IsFinal)
	assert.Equal(t, "yes", parsed.FinalAnswer)
}

func TestParseReAct_UnparseableReturnsFalse(t *testing.T) {
	_, ok := ParseReAct("I am just going to ramble without any structure.")
	assert.False(t, ok)
}

func TestParseReAct_ActionWithoutInputIsUnparseable(t *testing.T) {
	_, ok := ParseReAct("Thought: hmm\nAction: echo")
	assert.False(t, ok)
}

func TestParseReAct_ActionNameTrimmedOfPunctuation(t *testing.T) {
	parsed, ok := ParseReAct("Action: echo. \nAction Input: hi")
	require.True(t, ok)
	assert.Equal(t, "echo", parsed.ToolName)
}

func TestParseReAct_InputSpansToNextKeyword(t *testing.T) {
	text := "Action: echo\nAction Input: hello world\nThought: next step"
	parsed, ok := ParseReAct(text)
	require.True(t, ok)
	assert.Equal(t, "hello world", parsed.RawInput)
}

func TestResolveToolArgs_ValidJSON(t *testing.T) {
	args := ResolveToolArgs(`{"text": "hello"}`, "")
	assert.Equal(t, map[string]any{"text": "hello"}, args)
}

func TestResolveToolArgs_NonJSONUsesFirstSchemaField(t *testing.T) {
	args := ResolveToolArgs("hello world", "query")
	assert.Equal(t, map[string]any{"query": "hello world"}, args)
}

func TestResolveToolArgs_NonJSONNoSchemaFallsBackToInput(t *testing.T) {
	args := ResolveToolArgs("hello world", "")
	assert.Equal(t, map[string]any{"input": "hello world"}, args)
}
