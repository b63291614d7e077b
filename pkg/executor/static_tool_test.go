package executor

import (
	"context"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillet-ai/skillet/pkg/tools"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// staticTool is a named no-op tool for assembly tests.
type staticTool struct {
	name string
}

type staticToolInput struct{}

func (t *staticTool) Name() string { return t.name }

func (t *staticTool) Description() string { return "static test tool" }

func (t *staticTool) GenerateSchema() *jsonschema.Schema {
	return tools.GenerateSchema[staticToolInput]()
}

func (t *staticTool) ValidateInput(_ tooltypes.State, _ string) error { return nil }

func (t *staticTool) Execute(_ context.Context, _ tooltypes.State, _ string) tooltypes.ToolResult {
	return tooltypes.BaseToolResult{Result: "ok"}
}

func (t *staticTool) TracingKVs(_ string) ([]attribute.KeyValue, error) {
	return []attribute.KeyValue{attribute.String("tool", t.name)}, nil
}
