package task

import (
	"strings"
	"testing"

	"github.com/kadirpekel/crewcore/config"
	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_IncludesDescriptionAndExpectedOutput(t *testing.T) {
	tk := New(config.TaskConfig{Description: "Summarize {topic}", ExpectedOutput: "a short paragraph"})
	prompt := tk.BuildPrompt(map[string]string{"topic": "rust"}, "", "", false)

	assert.Contains(t, prompt, "Summarize rust")
	assert.Contains(t, prompt, "This is the expected output: a short paragraph")
}

func TestBuildPrompt_MarkdownInstructionOptional(t *testing.T) {
	tk := New(config.TaskConfig{Description: "d", ExpectedOutput: "e", Markdown: true})
	prompt := tk.BuildPrompt(nil, "", "", false)
	assert.Contains(t, prompt, "Markdown")
}

func TestBuildPrompt_ContextAndRetrievalSectionsAppended(t *testing.T) {
	tk := New(config.TaskConfig{Description: "d", ExpectedOutput: "e"})
	prompt := tk.BuildPrompt(nil, "prior task output", "retrieved facts", false)
	assert.Contains(t, prompt, "prior task output")
	assert.Contains(t, prompt, "retrieved facts")
}

func TestBuildPrompt_DateInjectionOptional(t *testing.T) {
	tk := New(config.TaskConfig{Description: "d", ExpectedOutput: "e"})
	withDate := tk.BuildPrompt(nil, "", "", true)
	withoutDate := tk.BuildPrompt(nil, "", "", false)
	assert.True(t, strings.Contains(withDate, "Current date:"))
	assert.False(t, strings.Contains(withoutDate, "Current date:"))
}
