package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPConfig configures a connection to an MCP tool server, grounded on the
// teacher's pkg/tool/mcptoolset.Config — this package only wires the stdio
// transport (the one mcp-go itself implements a client for); HTTP/SSE
// transports are out of scope here.
type MCPConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	Filter  []string // when non-empty, only these tool names are exposed
}

// MCPRepository lazily connects to an MCP server over stdio and exposes its
// tools as Tool implementations, per spec.md §6's tool plugin contract.
type MCPRepository struct {
	cfg MCPConfig

	mu        sync.Mutex
	client    *client.Client
	connected bool
	tools     map[string]Tool
}

func NewMCPRepository(cfg MCPConfig) *MCPRepository {
	return &MCPRepository{cfg: cfg, tools: make(map[string]Tool)}
}

// Connect establishes the MCP session and discovers its tool list. Callers
// register the returned tools into a Registry.
func (r *MCPRepository) Connect(ctx context.Context) ([]Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected {
		return r.toolSlice(), nil
	}

	env := make([]string, 0, len(r.cfg.Env))
	for k, v := range r.cfg.Env {
		env = append(env, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(r.cfg.Command, env, r.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: create client: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp: start client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "crewcore", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("mcp: initialize: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}

	var filterSet map[string]bool
	if len(r.cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(r.cfg.Filter))
		for _, n := range r.cfg.Filter {
			filterSet[n] = true
		}
	}

	r.tools = make(map[string]Tool)
	for _, mt := range listResp.Tools {
		if filterSet != nil && !filterSet[mt.Name] {
			continue
		}
		r.tools[mt.Name] = &mcpTool{
			repo:   r,
			name:   mt.Name,
			desc:   mt.Description,
			schema: convertMCPSchema(mt.InputSchema),
		}
	}

	r.client = mcpClient
	r.connected = true
	return r.toolSlice(), nil
}

func (r *MCPRepository) toolSlice() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

func (r *MCPRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	r.connected = false
	return err
}

// mcpTool wraps a single MCP server tool as a Tool. It declares no usage
// cap, no caching, and no env var requirements of its own — the server
// process itself is configured via MCPConfig.Env.
type mcpTool struct {
	repo   *MCPRepository
	name   string
	desc   string
	schema map[string]any
}

func (t *mcpTool) Name() string                         { return t.name }
func (t *mcpTool) Description() string                  { return t.desc }
func (t *mcpTool) Schema() map[string]any                { return t.schema }
func (t *mcpTool) MaxUsageCount() int                    { return 0 }
func (t *mcpTool) ShouldCache(map[string]any, any) bool  { return false }
func (t *mcpTool) ResultAsAnswer() bool                  { return false }
func (t *mcpTool) EnvVars() []EnvVar                     { return nil }

func (t *mcpTool) Run(ctx context.Context, args map[string]any) (any, error) {
	t.repo.mu.Lock()
	mcpClient := t.repo.client
	t.repo.mu.Unlock()
	if mcpClient == nil {
		return nil, fmt.Errorf("mcp: tool %q called before repository connected", t.name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp: call %q: %w", t.name, err)
	}
	if resp.IsError {
		for _, c := range resp.Content {
			if tc, ok := c.(mcp.TextContent); ok {
				return nil, fmt.Errorf("mcp: %s", tc.Text)
			}
		}
		return nil, fmt.Errorf("mcp: %s returned an unspecified error", t.name)
	}

	var texts []string
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	switch len(texts) {
	case 0:
		return nil, nil
	case 1:
		return texts[0], nil
	default:
		return texts, nil
	}
}

func convertMCPSchema(schema mcp.ToolInputSchema) map[string]any {
	out := map[string]any{"type": schema.Type}
	if schema.Properties != nil {
		out["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}
