package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromBytes_ExpandsEnvAndDefaults(t *testing.T) {
	require.NoError(t, os.Setenv("CREWCORE_TEST_HOST", "http://example.internal:11434"))
	defer os.Unsetenv("CREWCORE_TEST_HOST")

	raw := []byte(`
llms:
  local:
    type: ollama
    model: llama3
    host: "${CREWCORE_TEST_HOST}"
agents:
  researcher:
    role: Researcher
    goal: Find facts
    backstory: Careful and thorough
    llm: local
tasks:
  - description: Research the topic
    expected_output: A short report
    agent: researcher
`)

	cfg, err := LoadConfigFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "http://example.internal:11434", cfg.LLMs["local"].Host)
	assert.Equal(t, ProcessSequential, cfg.Crew.Process)
	assert.Equal(t, 15, cfg.Agents["researcher"].MaxIter)
}

func TestLoadConfigFromBytes_DefaultFallsBackWhenEnvUnset(t *testing.T) {
	os.Unsetenv("CREWCORE_UNSET_VAR")
	raw := []byte(`
llms:
  local:
    type: ollama
    model: llama3
    host: "${CREWCORE_UNSET_VAR:-http://localhost:11434}"
`)
	cfg, err := LoadConfigFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", cfg.LLMs["local"].Host)
}
