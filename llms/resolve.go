package llms

import "strings"

// resolveRule is one row of the provider resolution table described in
// spec.md §4.3 ("The resolver table is data, not code branches"). Rules are
// tried in order; the first match wins.
type resolveRule struct {
	// modelPrefix matches when the model name has this prefix (case
	// insensitive), e.g. "claude-" -> "anthropic".
	modelPrefix string
	provider    string
}

// defaultResolveTable mirrors the teacher's LLMProviderConfig.Type defaults
// switch (config/types.go SetDefaults), generalized into data per the
// REDESIGN note in spec.md §4.3.
var defaultResolveTable = []resolveRule{
	{modelPrefix: "claude-", provider: "anthropic"},
	{modelPrefix: "gpt-", provider: "openai"},
	{modelPrefix: "o1", provider: "openai"},
	{modelPrefix: "o3", provider: "openai"},
	{modelPrefix: "gemini-", provider: "gemini"},
	{modelPrefix: "llama", provider: "ollama"},
	{modelPrefix: "mistral", provider: "ollama"},
}

// ResolveProvider implements spec.md's precedence: explicit field > a
// "provider/model" prefixed model string > model-name pattern match > a
// caller-supplied default.
func ResolveProvider(explicit, model, fallback string, table []resolveRule) string {
	if explicit != "" {
		return explicit
	}
	if table == nil {
		table = defaultResolveTable
	}
	if provider, _, ok := strings.Cut(model, "/"); ok && provider != "" {
		return provider
	}
	lower := strings.ToLower(model)
	for _, rule := range table {
		if strings.HasPrefix(lower, rule.modelPrefix) {
			return rule.provider
		}
	}
	return fallback
}
