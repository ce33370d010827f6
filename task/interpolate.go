package task

import "regexp"

// placeholderRe matches a {key} placeholder. Keys are restricted to
// identifier-like characters so stray braces in free text (JSON examples
// in a description, say) are left alone.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// Interpolate replaces every {key} in text with inputs[key]; a key with no
// entry in inputs is left literal, per spec.md §4.5 ("unknown keys are
// left literal") and §6 ("Unknown keys: left literal (no error)").
//
// Interpolation is idempotent for a fixed inputs map: if a replacement
// value itself contains no {key} sequences that happen to match inputs
// keys, re-running Interpolate on the result is a no-op. Callers that need
// the stronger idempotence guarantee from spec.md §4.5 should interpolate
// once and treat the result as final, which is how task.BuildPrompt uses
// this function.
func Interpolate(text string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := match[1 : len(match)-1]
		if v, ok := inputs[key]; ok {
			return v
		}
		return match
	})
}
