// Package tools implements the tool variants a skill can expose to its
// sub-agent: manifest-backed script tools, the generic script runner,
// resource reads, and MCP-bound tools. It also provides the shared
// execution entry point with validation and tracing.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/telemetry"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// GenerateSchema reflects a parameter struct into a JSON schema with
// additional properties disallowed.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

var tracer = telemetry.Tracer("skillet.tools")

// RunTool dispatches one tool call within an execution context. Validation
// failures and execution errors both surface as error results, never as
// panics or bare errors, so the sub-agent always receives an observation.
func RunTool(ctx context.Context, state tooltypes.State, toolName string, parameters string) tooltypes.ToolResult {
	tool, err := findTool(toolName, state)
	if err != nil {
		return tooltypes.BaseToolResult{
			Error: errors.Wrap(err, "failed to find tool").Error(),
		}
	}

	kvs, err := tool.TracingKVs(parameters)
	if err != nil {
		logger.G(ctx).WithError(err).Error("failed to get tracing kvs")
	}

	ctx, span := tracer.Start(
		ctx,
		fmt.Sprintf("tools.run_tool.%s", toolName),
		trace.WithAttributes(kvs...),
	)
	defer span.End()

	if err := tool.ValidateInput(state, parameters); err != nil {
		return tooltypes.BaseToolResult{
			Error: err.Error(),
		}
	}
	result := tool.Execute(ctx, state, parameters)

	if result.IsError() {
		span.SetStatus(codes.Error, result.GetError())
		span.RecordError(errors.New(result.GetError()))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return result
}

func findTool(toolName string, state tooltypes.State) (tooltypes.Tool, error) {
	for _, tool := range state.Tools() {
		if tool.Name() == toolName {
			return tool, nil
		}
	}
	return nil, errors.Errorf("tool %s not found", toolName)
}
