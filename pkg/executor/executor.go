package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillet-ai/skillet/pkg/delta"
	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/scripts"
	"github.com/skillet-ai/skillet/pkg/skills"
	"github.com/skillet-ai/skillet/pkg/state"
	"github.com/skillet-ai/skillet/pkg/sysprompt"
	"github.com/skillet-ai/skillet/pkg/telemetry"
	"github.com/skillet-ai/skillet/pkg/tools"
	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

var tracer = telemetry.Tracer("skillet.executor")

// ExecutionResult is the outcome of one skill execution: the sub-agent's
// final output plus the state delta, nil when nothing changed or the skill
// declares no state.
type ExecutionResult struct {
	ID     uuid.UUID
	Skill  string
	Output string
	Delta  delta.Patch
}

// DeltaEvent wraps the result's delta in the wire event shape, or nil.
func (r *ExecutionResult) DeltaEvent() *delta.StateDeltaEvent {
	if len(r.Delta) == 0 {
		return nil
	}
	return &delta.StateDeltaEvent{Type: delta.EventTypeStateDelta, Delta: r.Delta}
}

// Executor is the facade the outer agent holds: it owns the registry, the
// state store, and the thread factory, and dispatches isolated sub-agent
// executions.
type Executor struct {
	registry      *skills.Registry
	store         *state.Store
	factory       ThreadFactory
	scriptTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithScriptTimeout bounds each script run inside executions.
func WithScriptTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.scriptTimeout = timeout
	}
}

// New creates an executor over a registry and a state store. The store must
// have been built from the registry's state descriptors.
func New(registry *skills.Registry, store *state.Store, factory ThreadFactory, opts ...Option) *Executor {
	e := &Executor{
		registry:      registry,
		store:         store,
		factory:       factory,
		scriptTimeout: scripts.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the executor's skill registry.
func (e *Executor) Registry() *skills.Registry {
	return e.registry
}

// Store returns the executor's state store.
func (e *Executor) Store() *state.Store {
	return e.store
}

// Execute runs one skill against a task. The sub-agent sees only this
// skill's instructions, tools, and state; the outer caller sees only the
// final output and the delta. State commits atomically after the thread
// completes, so a failed or cancelled execution leaves the store untouched.
func (e *Executor) Execute(ctx context.Context, skillName, task string) (*ExecutionResult, error) {
	skill, err := e.registry.Get(skillName)
	if err != nil {
		return nil, err
	}

	executionID := uuid.New()
	ctx, span := tracer.Start(ctx, "executor.execute",
		trace.WithAttributes(
			attribute.String("skill", skillName),
			attribute.String("execution_id", executionID.String()),
		),
	)
	defer span.End()

	log := logger.G(ctx).WithField("skill", skillName).WithField("execution_id", executionID)

	var pre, working map[string]any
	hasState := skill.State != nil
	if hasState {
		unlock, err := e.store.LockNamespace(skill.State.Namespace)
		if err != nil {
			return nil, err
		}
		defer unlock()

		pre, err = e.store.GetNamespace(skill.State.Namespace)
		if err != nil {
			return nil, err
		}
		// A separate copy for the sub-agent keeps the pre-snapshot intact
		// for the diff even when tools mutate the value in place.
		working, err = e.store.GetNamespace(skill.State.Namespace)
		if err != nil {
			return nil, err
		}
	}

	toolSet, err := e.assembleTools(ctx, skill)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	execState := NewExecutionContext(toolSet, skill.Directory, skill.Resources, working, hasState)

	thread, err := e.factory(sysprompt.SubAgent(task, skill))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "failed to create sub-agent thread")
	}

	log.Debug("dispatching sub-agent")
	output, err := thread.SendMessage(ctx, task, execState)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "skill %q execution failed", skillName)
	}

	result := &ExecutionResult{ID: executionID, Skill: skillName, Output: output}

	if hasState {
		post, _ := execState.StateValue()
		if err := e.store.Commit(skill.State.Namespace, post); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		patch, err := delta.Compute(pre, post)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if len(patch) > 0 {
			result.Delta = patch
		}
	}

	span.SetStatus(codes.Ok, "")
	log.WithField("delta_ops", len(result.Delta)).Debug("skill execution complete")
	return result, nil
}

// assembleTools builds the sub-agent's tool set: the skill's native tools,
// one tool per manifest-backed script, the generic script runner when the
// skill bundles scripts, the resource reader when it bundles resources, and
// any toolset-bound tools. The allowed-tools filter applies last, to every
// variant uniformly.
func (e *Executor) assembleTools(ctx context.Context, skill *skills.Skill) ([]tooltypes.Tool, error) {
	var toolSet []tooltypes.Tool
	toolSet = append(toolSet, skill.Tools...)

	if skill.Directory != "" {
		runner := scripts.NewRunner(skill.Directory, e.scriptTimeout)
		for _, spec := range skill.Scripts {
			toolSet = append(toolSet, tools.NewScriptTool(spec, runner))
		}
		if scripts.HasScripts(skill.Directory) {
			toolSet = append(toolSet, tools.NewRunScriptTool(runner))
		}
		if len(skill.Resources) > 0 {
			toolSet = append(toolSet, &tools.ReadResourceTool{})
		}
	}

	for _, toolset := range skill.Toolsets {
		bound, err := toolset.Tools(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve toolset for skill %q", skill.Metadata.Name)
		}
		toolSet = append(toolSet, bound...)
	}

	if len(skill.Metadata.AllowedTools) == 0 {
		return toolSet, nil
	}
	filtered := make([]tooltypes.Tool, 0, len(toolSet))
	for _, tool := range toolSet {
		if skill.Metadata.ToolAllowed(tool.Name()) {
			filtered = append(filtered, tool)
		}
	}
	return filtered, nil
}
