package agent

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/crewcore/tools"
)

// reactFormatInstructions is the fixed grammar the text-mode system prompt
// teaches the model, per spec.md §4.4.
const reactFormatInstructions = `You must respond using exactly one of these two formats:

Thought: <your reasoning>
Action: <tool name>
Action Input: <JSON object of arguments>

or, when you have the final answer:

Thought: <your reasoning>
Final Answer: <your answer>`

// systemPrompt builds the agent's identity-and-instructions system message.
func systemPrompt(id Identity, native bool, defs []tools.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", id.Role)
	fmt.Fprintf(&b, "Your goal: %s\n", id.Goal)
	if id.Backstory != "" {
		fmt.Fprintf(&b, "Backstory: %s\n", id.Backstory)
	}
	if len(defs) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, d := range defs {
			fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		}
	}
	if !native {
		b.WriteString("\n")
		b.WriteString(reactFormatInstructions)
	}
	return b.String()
}

// formatReminder is appended every RememberFormatAfterUsages tool
// invocations, and after an unparseable ReAct response, per spec.md §4.4
// ("Remember-format reminder").
func formatReminder() string {
	return "Reminder: use exactly this format:\n" + reactFormatInstructions
}
