package tools

import (
	"context"
	"testing"

	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool is a minimal Tool for exercising the engine's pipeline.
type fakeTool struct {
	name       string
	maxUsage   int
	shouldCach bool
	resultAns  bool
	runFn      func(ctx context.Context, args map[string]any) (any, error)
	calls      int
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "a fake tool" }
func (f *fakeTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{"text": map[string]any{"type": "string"}}}
}
func (f *fakeTool) MaxUsageCount() int { return f.maxUsage }
func (f *fakeTool) ShouldCache(args map[string]any, result any) bool { return f.shouldCach }
func (f *fakeTool) ResultAsAnswer() bool                              { return f.resultAns }
func (f *fakeTool) EnvVars() []EnvVar                                 { return nil }
func (f *fakeTool) Run(ctx context.Context, args map[string]any) (any, error) {
	f.calls++
	if f.runFn != nil {
		return f.runFn(ctx, args)
	}
	return args["text"], nil
}

func newTestEngine(t *testing.T, tls ...Tool) (*Engine, *Registry) {
	t.Helper()
	reg := NewRegistry(config.ToolConfigs{})
	for _, tl := range tls {
		require.NoError(t, reg.Register(tl))
	}
	bus := event.New(nil)
	RegisterScopes(bus)
	return NewEngine(reg, bus), reg
}

func TestEngine_Invoke_ExactMatch(t *testing.T) {
	echo := &fakeTool{name: "echo"}
	engine, _ := newTestEngine(t, echo)

	result, err := engine.Invoke(context.Background(), "agent|task", "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hello", result.Output)
	assert.Equal(t, 1, engine.InvocationCount("echo"))
}

// S2 from spec.md §8: a tool at its usage cap fails the next invocation
// without running the body.
func TestEngine_Invoke_UsageCapExceeded(t *testing.T) {
	capped := &fakeTool{name: "t", maxUsage: 1}
	engine, _ := newTestEngine(t, capped)

	_, err := engine.Invoke(context.Background(), "a|t", "t", map[string]any{"text": "x"})
	require.NoError(t, err)

	_, err = engine.Invoke(context.Background(), "a|t", "t", map[string]any{"text": "y"})
	require.Error(t, err)
	var toolErr *Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, ErrLimit, toolErr.Kind)
	assert.Equal(t, 1, capped.calls)
}

// S3: fuzzy selection picks the close match above threshold and fails
// below it.
func TestEngine_Invoke_FuzzySelection(t *testing.T) {
	searchWeb := &fakeTool{name: "search_web"}
	engine, _ := newTestEngine(t, searchWeb)

	result, err := engine.Invoke(context.Background(), "a|t", "searchweb", map[string]any{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "search_web", result.ToolName)

	_, err = engine.Invoke(context.Background(), "a|t", "web", map[string]any{})
	require.Error(t, err)
	var toolErr *Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, ErrSelection, toolErr.Kind)
}

func TestEngine_Invoke_UnknownToolIsSelectionError(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Invoke(context.Background(), "a|t", "nonexistent", map[string]any{})
	require.Error(t, err)
	var toolErr *Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, ErrSelection, toolErr.Kind)
}

func TestEngine_Invoke_RepetitionDetectionShortCircuits(t *testing.T) {
	echo := &fakeTool{name: "echo"}
	engine, _ := newTestEngine(t, echo)

	_, err := engine.Invoke(context.Background(), "a|t", "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)

	result, err := engine.Invoke(context.Background(), "a|t", "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "you just tried")
	assert.Equal(t, 1, echo.calls, "repeated call must not re-execute the tool body")
}

func TestEngine_Invoke_DifferentArgsNotTreatedAsRepetition(t *testing.T) {
	echo := &fakeTool{name: "echo"}
	engine, _ := newTestEngine(t, echo)

	_, err := engine.Invoke(context.Background(), "a|t", "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	_, err = engine.Invoke(context.Background(), "a|t", "echo", map[string]any{"text": "bye"})
	require.NoError(t, err)
	assert.Equal(t, 2, echo.calls)
}

// Cached results are returned without incrementing invocation count on the
// repeat hit, per spec.md §8 round-trip property.
func TestEngine_Invoke_CacheHitSkipsExecution(t *testing.T) {
	cached := &fakeTool{name: "cached", shouldCach: true}
	engine, _ := newTestEngine(t, cached)

	_, err := engine.Invoke(context.Background(), "a|t1", "cached", map[string]any{"text": "x"})
	require.NoError(t, err)
	require.Equal(t, 1, cached.calls)

	// A different agent/task key avoids repetition detection but should
	// still hit the shared cache for identical arguments.
	result, err := engine.Invoke(context.Background(), "a|t2", "cached", map[string]any{"text": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", result.Output)
	assert.Equal(t, 1, cached.calls, "cache hit must not re-invoke the tool body")
	assert.Equal(t, 1, engine.InvocationCount("cached"))
}

func TestEngine_Invoke_ExecutionErrorIsClassified(t *testing.T) {
	failing := &fakeTool{name: "boom", runFn: func(ctx context.Context, args map[string]any) (any, error) {
		return nil, assertErr{}
	}}
	engine, _ := newTestEngine(t, failing)

	_, err := engine.Invoke(context.Background(), "a|t", "boom", map[string]any{})
	require.Error(t, err)
	var toolErr *Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, ErrExecution, toolErr.Kind)
}

func TestEngine_Invoke_ResultAsAnswerPropagates(t *testing.T) {
	final := &fakeTool{name: "final", resultAns: true}
	engine, _ := newTestEngine(t, final)

	result, err := engine.Invoke(context.Background(), "a|t", "final", map[string]any{"text": "done"})
	require.NoError(t, err)
	assert.True(t, result.ResultAsAnswer)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
