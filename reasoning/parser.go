package reasoning

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParsedStep is the result of parsing one ReAct-mode model response.
type ParsedStep struct {
	Thought     string
	IsFinal     bool
	FinalAnswer string
	ToolName    string
	RawInput    string
}

var (
	finalAnswerRe = regexp.MustCompile(`(?i)final\s*answer\s*:`)
	actionRe      = regexp.MustCompile(`(?i)action\s*:`)
	actionInputRe = regexp.MustCompile(`(?i)action\s*input\s*:`)
	thoughtRe     = regexp.MustCompile(`(?i)thought\s*:`)
	// keywordRe matches any of the recognised ReAct keywords, used to find
	// where an Action Input span ends.
	keywordRe = regexp.MustCompile(`(?i)(thought|action|action\s*input|final\s*answer)\s*:`)
)

// ParseReAct implements spec.md §4.4's text-mode parser rules:
//   - "Final Answer:" (case-insensitive, whitespace-tolerant) wins over
//     "Action:" whenever both appear in the same text.
//   - Otherwise "Action:" followed by "Action Input:" is parsed: the action
//     name is trimmed and stripped of trailing punctuation; the input spans
//     to end of text or the next recognised keyword.
//   - Anything else is unparseable (ok=false), signalling a format failure
//     to the caller.
func ParseReAct(text string) (ParsedStep, bool) {
	thought := extractThought(text)

	if loc := finalAnswerRe.FindStringIndex(text); loc != nil {
		answer := text[loc[1]:]
		// Even if an "Action:" also appears, Final Answer wins per
		// spec.md §8 ("Final Answer wins" boundary).
		return ParsedStep{Thought: thought, IsFinal: true, FinalAnswer: strings.TrimSpace(answer)}, true
	}

	actionLoc := actionRe.FindStringIndex(text)
	if actionLoc == nil {
		return ParsedStep{}, false
	}
	afterAction := text[actionLoc[1]:]

	inputLoc := actionInputRe.FindStringIndex(afterAction)
	if inputLoc == nil {
		return ParsedStep{}, false
	}

	name := strings.TrimSpace(afterAction[:inputLoc[0]])
	name = strings.TrimRight(name, ".,:;!? \t\n")
	if name == "" {
		return ParsedStep{}, false
	}

	rest := afterAction[inputLoc[1]:]
	end := len(rest)
	if kw := keywordRe.FindStringIndex(rest); kw != nil {
		end = kw[0]
	}
	input := strings.TrimSpace(rest[:end])

	return ParsedStep{Thought: thought, ToolName: name, RawInput: input}, true
}

func extractThought(text string) string {
	loc := thoughtRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	end := len(rest)
	if kw := keywordRe.FindStringIndex(rest); kw != nil {
		end = kw[0]
	}
	return strings.TrimSpace(rest[:end])
}

// ResolveToolArgs turns a ReAct Action Input string into a tool call's
// argument map, per spec.md §4.4: JSON when syntactically valid; otherwise
// a single positional argument named by the tool's first schema field, or
// {"input": "..."} when the schema declares none.
func ResolveToolArgs(rawInput string, firstSchemaField string) map[string]any {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(rawInput), &decoded); err == nil {
		return decoded
	}
	// Not a JSON object; wrap the raw text, unparsed, as a single string
	// argument under one key.
	key := firstSchemaField
	if key == "" {
		key = "input"
	}
	return map[string]any{key: rawInput}
}
