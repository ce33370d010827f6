package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanArguments_DropsNullValues(t *testing.T) {
	out := CleanArguments(map[string]any{"a": "x", "b": nil})
	assert.Equal(t, map[string]any{"a": "x"}, out)
}

func TestCleanArguments_DropsEmptyNestedObjectsAndArrays(t *testing.T) {
	out := CleanArguments(map[string]any{
		"keep":  "x",
		"empty": map[string]any{"n": nil},
		"arr":   []any{nil, nil},
	})
	assert.Equal(t, map[string]any{"keep": "x"}, out)
}

func TestCleanArguments_RecursesIntoNested(t *testing.T) {
	out := CleanArguments(map[string]any{
		"nested": map[string]any{"a": "1", "b": nil},
	})
	assert.Equal(t, map[string]any{"nested": map[string]any{"a": "1"}}, out)
}

func TestCleanArguments_SourcesQuirkConvertsStringsToObjects(t *testing.T) {
	out := CleanArguments(map[string]any{
		"sources": []any{"web", "docs"},
	})
	assert.Equal(t, map[string]any{
		"sources": []any{
			map[string]any{"type": "web"},
			map[string]any{"type": "docs"},
		},
	}, out)
}

func TestCleanArguments_SourcesQuirkSkippedForNonStringArray(t *testing.T) {
	out := CleanArguments(map[string]any{
		"sources": []any{map[string]any{"type": "web"}},
	})
	assert.Equal(t, map[string]any{
		"sources": []any{map[string]any{"type": "web"}},
	}, out)
}

func TestCleanArguments_NilInputReturnsEmptyMap(t *testing.T) {
	out := CleanArguments(nil)
	assert.Equal(t, map[string]any{}, out)
}
