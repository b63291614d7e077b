package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/avast/retry-go/v4"
	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/skills"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
	"github.com/skillet-ai/skillet/pkg/version"
)

var (
	_ tooltypes.Tool = &MCPTool{}
	_ skills.Toolset = &MCPManager{}
)

type MCPServerType string

const (
	MCPServerTypeStdio MCPServerType = "stdio"
	MCPServerTypeSSE   MCPServerType = "sse"
)

// MCPServerConfig describes one MCP server a skill binds its tools from.
type MCPServerConfig struct {
	ServerType    MCPServerType     `json:"server_type" mapstructure:"server_type"`
	Command       string            `json:"command" mapstructure:"command"`
	Args          []string          `json:"args" mapstructure:"args"`
	Envs          map[string]string `json:"envs" mapstructure:"envs"`
	BaseURL       string            `json:"base_url" mapstructure:"base_url"`
	Headers       map[string]string `json:"headers" mapstructure:"headers"`
	ToolWhiteList []string          `json:"tool_white_list" mapstructure:"tool_white_list"`
}

// MCPServersConfig maps server names to their configs.
type MCPServersConfig struct {
	Servers map[string]MCPServerConfig `json:"servers" mapstructure:"servers"`
}

// NewMCPClient builds an unconnected client for one server config. The
// server type is inferred from the populated fields when unset.
func NewMCPClient(config MCPServerConfig) (*client.Client, error) {
	if config.ServerType == "" {
		switch {
		case config.BaseURL != "":
			config.ServerType = MCPServerTypeSSE
		case config.Command != "":
			config.ServerType = MCPServerTypeStdio
		default:
			return nil, errors.New("server_type is required")
		}
	}

	switch config.ServerType {
	case MCPServerTypeStdio:
		if config.Command == "" {
			return nil, errors.New("command is required for stdio server")
		}
		envArgs := []string{}
		for k, v := range config.Envs {
			envArgs = append(envArgs, fmt.Sprintf("%s=%s", k, v))
		}
		tp := transport.NewStdio(config.Command, envArgs, config.Args...)
		return client.NewClient(tp), nil
	case MCPServerTypeSSE:
		if config.BaseURL == "" {
			return nil, errors.New("base_url is required for sse server")
		}
		tp, err := transport.NewSSE(config.BaseURL, transport.WithHeaders(config.Headers))
		if err != nil {
			return nil, err
		}
		return client.NewClient(tp), nil
	default:
		return nil, errors.New("invalid server type")
	}
}

// MCPManager owns the clients for a set of MCP servers and exposes their
// tools as a skill toolset.
type MCPManager struct {
	clients   map[string]*client.Client
	whiteList map[string][]string
}

// NewMCPManager builds clients for every configured server.
func NewMCPManager(config MCPServersConfig) (*MCPManager, error) {
	m := &MCPManager{
		clients:   make(map[string]*client.Client),
		whiteList: make(map[string][]string),
	}
	for name, serverConfig := range config.Servers {
		c, err := NewMCPClient(serverConfig)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid mcp server %q", name)
		}
		m.clients[name] = c
		m.whiteList[name] = serverConfig.ToolWhiteList
	}
	return m, nil
}

// Initialize starts and handshakes every client. Stdio servers can take a
// moment to come up, so the handshake is retried with backoff.
func (m *MCPManager) Initialize(ctx context.Context) error {
	for name, c := range m.clients {
		log := logger.G(ctx).WithField("server", name)
		log.Debug("initializing mcp client")

		if err := c.Start(ctx); err != nil {
			return errors.Wrapf(err, "failed to start mcp server %q", name)
		}

		initReq := mcp.InitializeRequest{}
		initReq.Params.ClientInfo = mcp.Implementation{
			Name:    "skillet",
			Version: version.Version,
		}
		initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION

		err := retry.Do(
			func() error {
				_, err := c.Initialize(ctx, initReq)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(3),
			retry.DelayType(retry.BackOffDelay),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to initialize mcp server %q", name)
		}
		log.Debug("initialized mcp client")
	}
	return nil
}

// Close shuts down every client, logging rather than failing on errors.
func (m *MCPManager) Close(ctx context.Context) error {
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			logger.G(ctx).WithField("server", name).WithError(err).Error("failed to close mcp client")
		}
	}
	return nil
}

// Tools lists the whitelisted tools of every server, satisfying the skill
// toolset contract.
func (m *MCPManager) Tools(ctx context.Context) ([]tooltypes.Tool, error) {
	var tools []tooltypes.Tool
	for name, c := range m.clients {
		result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list tools of mcp server %q", name)
		}
		for _, tool := range result.Tools {
			if toolWhiteListed(tool, m.whiteList[name]) {
				tools = append(tools, NewMCPTool(c, tool))
			}
		}
	}
	return tools, nil
}

func toolWhiteListed(tool mcp.Tool, whiteList []string) bool {
	return len(whiteList) == 0 || slices.Contains(whiteList, tool.GetName())
}

// SkillFromMCP wraps an MCP server set as a skill: the sub-agent gets the
// servers' tools plus the given instructions. The manager must be
// initialized before the skill executes.
func SkillFromMCP(name, description, instructions string, manager *MCPManager) (*skills.Skill, error) {
	skill := &skills.Skill{
		Metadata: skills.Metadata{
			Name:        name,
			Description: description,
		},
		Source:       skills.SourceMCP,
		Instructions: instructions,
		Toolsets:     []skills.Toolset{manager},
	}
	if err := skill.Validate(); err != nil {
		return nil, err
	}
	return skill, nil
}

// MCPTool adapts one remote MCP tool to the local tool contract.
type MCPTool struct {
	client             *client.Client
	mcpToolInputSchema mcp.ToolInputSchema
	mcpToolName        string
	mcpToolDescription string
}

// NewMCPTool wraps a listed MCP tool with the client it came from.
func NewMCPTool(client *client.Client, tool mcp.Tool) *MCPTool {
	return &MCPTool{
		client:             client,
		mcpToolInputSchema: tool.InputSchema,
		mcpToolName:        tool.GetName(),
		mcpToolDescription: tool.Description,
	}
}

func (t *MCPTool) Name() string {
	return fmt.Sprintf("mcp_%s", t.mcpToolName)
}

func (t *MCPTool) Description() string {
	return t.mcpToolDescription
}

func (t *MCPTool) GenerateSchema() *jsonschema.Schema {
	raw, err := t.mcpToolInputSchema.MarshalJSON()
	if err != nil {
		return nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	return &schema
}

func (t *MCPTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return []attribute.KeyValue{
		attribute.String("tool", t.Name()),
	}, nil
}

func (t *MCPTool) ValidateInput(_ tooltypes.State, parameters string) error {
	var input map[string]any
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return errors.Wrap(err, "invalid tool parameters")
	}
	return nil
}

func (t *MCPTool) Execute(ctx context.Context, _ tooltypes.State, parameters string) tooltypes.ToolResult {
	var input map[string]any
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.mcpToolName
	req.Params.Arguments = input
	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return tooltypes.BaseToolResult{Error: err.Error()}
	}

	content := ""
	for _, c := range result.Content {
		if v, ok := c.(mcp.TextContent); ok {
			content += v.Text
		} else {
			content += fmt.Sprintf("%v", c)
		}
	}
	if result.IsError {
		return tooltypes.BaseToolResult{Error: content}
	}
	return tooltypes.BaseToolResult{Result: content}
}
