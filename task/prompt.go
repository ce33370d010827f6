package task

import (
	"fmt"
	"strings"
	"time"
)

const markdownInstruction = "Your final answer must be formatted in Markdown."

// BuildPrompt assembles a task's prompt, per spec.md §4.5 ("Prompt
// construction"): interpolated description, interpolated expected-output,
// optional markdown-formatting instruction, optional context section
// (prerequisite task outputs), optional retrieval section (C7), optional
// date injection.
//
// contextSection and retrievalSection are pre-built by the caller (crew
// and memory packages respectively) and appended verbatim when non-empty.
func (t *Task) BuildPrompt(inputs map[string]string, contextSection, retrievalSection string, injectDate bool) string {
	description := Interpolate(t.Cfg.Description, inputs)
	expected := Interpolate(t.Cfg.ExpectedOutput, inputs)

	var b strings.Builder
	b.WriteString(description)
	fmt.Fprintf(&b, "\n\nThis is the expected output: %s", expected)

	if t.Cfg.Markdown {
		b.WriteString("\n\n")
		b.WriteString(markdownInstruction)
	}
	if contextSection != "" {
		b.WriteString("\n\nContext from previous tasks:\n")
		b.WriteString(contextSection)
	}
	if retrievalSection != "" {
		b.WriteString("\n\n")
		b.WriteString(retrievalSection)
	}
	if injectDate {
		fmt.Fprintf(&b, "\n\nCurrent date: %s", time.Now().Format("2006-01-02"))
	}
	return b.String()
}
