// Package tools defines the tool abstraction shared by every tool variant
// (native functions, script tools, the generic script runner, resource
// reads, MCP-backed tools) and the execution state handed to them.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// Tool is the single dispatch surface for every tool variant. The executor
// treats all variants uniformly; parameters arrive as a JSON-encoded string.
type Tool interface {
	Name() string
	Description() string
	GenerateSchema() *jsonschema.Schema
	ValidateInput(state State, parameters string) error
	Execute(ctx context.Context, state State, parameters string) ToolResult
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

// ToolResult is the outcome of one tool invocation.
type ToolResult interface {
	GetResult() string
	GetError() string
	IsError() bool
	// AssistantFacing returns the content fed back to the sub-agent.
	AssistantFacing() string
}

// State is the per-execution context visible to tools. It is scoped to
// exactly one skill execution: the tool set never includes another skill's
// tools, and the state value is the working copy for the skill's namespace.
type State interface {
	// Tools returns the tool set of the current execution.
	Tools() []Tool
	// SkillDir returns the skill directory, or "" for directory-less skills.
	SkillDir() string
	// Resources returns the relative paths readable via read_resource.
	Resources() []string
	// StateValue returns the working copy of the skill's namespace value.
	// ok is false when the skill declares no state.
	StateValue() (value map[string]any, ok bool)
	// SetStateValue replaces the working copy. Committed to the store only
	// after the execution completes.
	SetStateValue(value map[string]any)
}

// BaseToolResult is the plain implementation of ToolResult used by tools
// that need no structured metadata.
type BaseToolResult struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

func (r BaseToolResult) GetResult() string { return r.Result }

func (r BaseToolResult) GetError() string { return r.Error }

func (r BaseToolResult) IsError() bool { return r.Error != "" }

func (r BaseToolResult) AssistantFacing() string {
	return StringifyToolResult(r.Result, r.Error)
}

// StringifyToolResult renders a result/error pair in the XML-ish framing the
// sub-agent sees as a tool observation.
func StringifyToolResult(result, err string) string {
	out := ""
	if err != "" {
		out = fmt.Sprintf("<error>\n%s\n</error>\n", err)
	}
	if result == "" && err == "" {
		result = "(no content)"
	}
	if result != "" {
		out += fmt.Sprintf("<result>\n%s\n</result>\n", result)
	}
	return out
}
