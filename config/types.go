// Package config holds the declarative records that describe a crew: its
// LLM providers, agents, tasks, tools, memory stores and event bus. Every
// record follows the same pattern as the rest of the stack: a plain struct,
// a Validate() error, and a SetDefaults() that fills in zero-config values.
package config

import (
	"fmt"
	"time"
)

// Config is the root declarative bundle consumed by component.Manager to
// build a runnable crew.
type Config struct {
	LLMs    map[string]LLMProviderConfig `yaml:"llms"`
	Agents  map[string]AgentConfig       `yaml:"agents"`
	Tasks   []TaskConfig                 `yaml:"tasks"`
	Tools   ToolConfigs                  `yaml:"tools"`
	Memory  MemoryConfig                 `yaml:"memory"`
	Crew    CrewConfig                   `yaml:"crew"`
	Logging LoggingConfig                `yaml:"logging"`
}

func (c *Config) Validate() error {
	if len(c.LLMs) == 0 {
		return fmt.Errorf("at least one llm provider is required")
	}
	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm '%s': %w", name, err)
		}
	}
	for name, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("agent '%s': %w", name, err)
		}
	}
	for i, t := range c.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task[%d]: %w", i, err)
		}
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	if err := c.Memory.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	return c.Crew.Validate()
}

func (c *Config) SetDefaults() {
	for name, llm := range c.LLMs {
		llm.SetDefaults()
		c.LLMs[name] = llm
	}
	for name, a := range c.Agents {
		a.SetDefaults()
		c.Agents[name] = a
	}
	for i := range c.Tasks {
		c.Tasks[i].SetDefaults()
	}
	c.Tools.SetDefaults()
	c.Memory.SetDefaults()
	c.Crew.SetDefaults()
	c.Logging.SetDefaults()
}

// ============================================================================
// LLM PROVIDER CONFIGURATION (C3)
// ============================================================================

// LLMProviderConfig carries every provider-agnostic tuning knob from
// spec.md §4.3. APIKey is marked sensitive: its yaml:"-" tag keeps it out of
// YAML output and String redacts it.
type LLMProviderConfig struct {
	Type                string             `yaml:"type"` // "ollama", "openai", "anthropic", ...; SetDefaults sets "ollama" when empty (llms.ResolveProvider is not consulted)
	Model               string             `yaml:"model"`
	Host                string             `yaml:"host"`
	APIKey              string             `yaml:"-"` // sensitive: never serialized
	Temperature         float64            `yaml:"temperature"`
	TopP                float64            `yaml:"top_p"`
	MaxTokens           int                `yaml:"max_tokens"`
	MaxCompletionTokens int                `yaml:"max_completion_tokens"`
	ReasoningEffort     string             `yaml:"reasoning_effort"` // "low","medium","high"
	ResponseFormat      string             `yaml:"response_format"`
	Seed                *int64             `yaml:"seed"`
	Timeout             time.Duration      `yaml:"timeout"`
	Stream              bool               `yaml:"stream"`
	Stop                []string           `yaml:"stop"`
	ContextWindow       int                `yaml:"context_window"`
	MinUsableContext    int                `yaml:"min_usable_context"`
	MaxUsableContext    int                `yaml:"max_usable_context"`
	SupportsFunctions   bool               `yaml:"supports_functions"`
	SupportsStopWords   bool               `yaml:"supports_stop_words"`
	SupportsMultimodal  bool               `yaml:"supports_multimodal"`
	Extra               map[string]any     `yaml:"extra"`
}

func (c *LLMProviderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("context_window must be non-negative")
	}
	return nil
}

func (c *LLMProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Host == "" {
		switch c.Type {
		case "openai":
			c.Host = "https://api.openai.com/v1"
		case "anthropic":
			c.Host = "https://api.anthropic.com"
		default:
			c.Host = "http://localhost:11434"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = 8192
	}
	if c.MinUsableContext == 0 {
		c.MinUsableContext = 1024
	}
	if c.MaxUsableContext == 0 {
		c.MaxUsableContext = c.ContextWindow
	}
}

// String implements fmt.Stringer, redacting the API key.
func (c LLMProviderConfig) String() string {
	key := ""
	if c.APIKey != "" {
		key = "***"
	}
	return fmt.Sprintf("LLMProviderConfig{Type:%s Model:%s APIKey:%s}", c.Type, c.Model, key)
}

// ============================================================================
// AGENT CONFIGURATION
// ============================================================================

// AgentConfig is an agent's immutable identity plus its execution budget.
// The (Role, Goal, Backstory) triplet is the agent's key per spec.md §6.
type AgentConfig struct {
	Name              string   `yaml:"name"`
	Role              string   `yaml:"role"`
	Goal              string   `yaml:"goal"`
	Backstory         string   `yaml:"backstory"`
	LLM               string   `yaml:"llm"` // reference into Config.LLMs
	Tools             []string `yaml:"tools"`
	MaxIter           int      `yaml:"max_iter"`
	MaxRPM            int      `yaml:"max_rpm"`
	MaxRetryLimit     int      `yaml:"max_retry_limit"`
	AllowDelegation   bool     `yaml:"allow_delegation"`
	ForceTextReasoning bool    `yaml:"force_text_reasoning"` // reasoning-first flag: force ReAct even if LLM supports native calling
	Verbose           bool     `yaml:"verbose"`
	MaxDelegationDepth int     `yaml:"max_delegation_depth"`
	RememberFormatAfterUsages int `yaml:"remember_format_after_usages"`
	MaxFormatFailures int     `yaml:"max_format_failures"`
}

func (c *AgentConfig) Validate() error {
	if c.Role == "" {
		return fmt.Errorf("role is required")
	}
	if c.Goal == "" {
		return fmt.Errorf("goal is required")
	}
	if c.LLM == "" {
		return fmt.Errorf("llm reference is required")
	}
	if c.MaxIter < 0 {
		return fmt.Errorf("max_iter must be non-negative")
	}
	if c.MaxRPM < 0 {
		return fmt.Errorf("max_rpm must be non-negative")
	}
	return nil
}

func (c *AgentConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = c.Role
	}
	if c.MaxIter == 0 {
		c.MaxIter = 15
	}
	if c.MaxRetryLimit == 0 {
		c.MaxRetryLimit = 2
	}
	if c.MaxDelegationDepth == 0 {
		c.MaxDelegationDepth = 3
	}
	if c.RememberFormatAfterUsages == 0 {
		c.RememberFormatAfterUsages = 6
	}
	if c.MaxFormatFailures == 0 {
		c.MaxFormatFailures = 3
	}
}

// ============================================================================
// TASK CONFIGURATION (C5)
// ============================================================================

type OutputFormat string

const (
	OutputRaw        OutputFormat = "raw"
	OutputStructured OutputFormat = "structured"
	OutputJSON       OutputFormat = "json"
)

type TaskConfig struct {
	Name               string         `yaml:"name"`
	Description        string         `yaml:"description"`
	ExpectedOutput     string         `yaml:"expected_output"`
	Agent              string         `yaml:"agent"` // reference into Config.Agents; empty for hierarchical
	Context            []string       `yaml:"context"` // names of prerequisite tasks
	ToolsWhitelist     []string       `yaml:"tools"`
	OutputFormat       OutputFormat   `yaml:"output_format"`
	OutputFile         string         `yaml:"output_file"`
	CreateDirectory    bool           `yaml:"create_directory"`
	Async              bool           `yaml:"async"`
	HumanInput         bool           `yaml:"human_input"`
	GuardrailMaxRetries int           `yaml:"guardrail_max_retries"`
	MaxExecutionTime   time.Duration  `yaml:"max_execution_time"`
	Markdown           bool           `yaml:"markdown"`
}

func (c *TaskConfig) Validate() error {
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.ExpectedOutput == "" {
		return fmt.Errorf("expected_output is required")
	}
	switch c.OutputFormat {
	case "", OutputRaw, OutputStructured, OutputJSON:
	default:
		return fmt.Errorf("invalid output_format: %s", c.OutputFormat)
	}
	if c.GuardrailMaxRetries < 0 {
		return fmt.Errorf("guardrail_max_retries must be non-negative")
	}
	return nil
}

func (c *TaskConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = c.Description
	}
	if c.OutputFormat == "" {
		c.OutputFormat = OutputRaw
	}
	if c.GuardrailMaxRetries == 0 {
		c.GuardrailMaxRetries = 3
	}
}

// ============================================================================
// TOOL CONFIGURATION (C2)
// ============================================================================

type ToolConfigs struct {
	MaxUsagePerTool map[string]int `yaml:"max_usage_per_tool"`
	FuzzyThreshold  float64        `yaml:"fuzzy_threshold"`
}

func (c *ToolConfigs) Validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in [0,1]")
	}
	return nil
}

func (c *ToolConfigs) SetDefaults() {
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = 0.85
	}
}

// ============================================================================
// MEMORY CONFIGURATION (C7)
// ============================================================================

type MemoryConfig struct {
	ShortTermEnabled bool    `yaml:"short_term_enabled"`
	LongTermEnabled  bool    `yaml:"long_term_enabled"`
	EntityEnabled    bool    `yaml:"entity_enabled"`
	ExternalEnabled  bool    `yaml:"external_enabled"`
	TopK             int     `yaml:"top_k"`
	ScoreThreshold   float64 `yaml:"score_threshold"`
	SQLitePath       string  `yaml:"sqlite_path"`
}

func (c *MemoryConfig) Validate() error {
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative")
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be in [0,1]")
	}
	return nil
}

func (c *MemoryConfig) SetDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = 0.35
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "file::memory:?cache=shared"
	}
}

// ============================================================================
// CREW CONFIGURATION (C6)
// ============================================================================

type ProcessMode string

const (
	ProcessSequential  ProcessMode = "sequential"
	ProcessHierarchical ProcessMode = "hierarchical"
)

type CrewConfig struct {
	Name        string        `yaml:"name"`
	Process     ProcessMode   `yaml:"process"`
	ManagerLLM  string        `yaml:"manager_llm"`  // used when Process == hierarchical and ManagerAgent is empty
	ManagerAgent string       `yaml:"manager_agent"` // reference into Config.Agents
	MaxRPM      int           `yaml:"max_rpm"`
	RateWindow  time.Duration `yaml:"rate_window"`
	InjectDate  bool          `yaml:"inject_date"` // append the current date to each task prompt
}

func (c *CrewConfig) Validate() error {
	switch c.Process {
	case "", ProcessSequential, ProcessHierarchical:
	default:
		return fmt.Errorf("invalid process: %s", c.Process)
	}
	if c.Process == ProcessHierarchical && c.ManagerLLM == "" && c.ManagerAgent == "" {
		return fmt.Errorf("hierarchical process requires manager_llm or manager_agent")
	}
	if c.MaxRPM < 0 {
		return fmt.Errorf("max_rpm must be non-negative")
	}
	return nil
}

func (c *CrewConfig) SetDefaults() {
	if c.Process == "" {
		c.Process = ProcessSequential
	}
	if c.RateWindow == 0 {
		c.RateWindow = 60 * time.Second
	}
}

// ============================================================================
// LOGGING CONFIGURATION
// ============================================================================

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}
