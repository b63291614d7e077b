package executor

import (
	"sync"

	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// ExecutionContext is the per-execution state handed to tools. It holds the
// sub-agent's tool set, the skill directory, the declared resources, and the
// working copy of the skill's state value. The working copy is committed to
// the store only after the thread completes successfully.
type ExecutionContext struct {
	mu         sync.Mutex
	tools      []tooltypes.Tool
	skillDir   string
	resources  []string
	stateValue map[string]any
	hasState   bool
}

var _ tooltypes.State = &ExecutionContext{}

// NewExecutionContext builds the state for one execution. stateValue may be
// nil when the skill declares no namespace.
func NewExecutionContext(tools []tooltypes.Tool, skillDir string, resources []string, stateValue map[string]any, hasState bool) *ExecutionContext {
	return &ExecutionContext{
		tools:      tools,
		skillDir:   skillDir,
		resources:  resources,
		stateValue: stateValue,
		hasState:   hasState,
	}
}

func (c *ExecutionContext) Tools() []tooltypes.Tool {
	return c.tools
}

func (c *ExecutionContext) SkillDir() string {
	return c.skillDir
}

func (c *ExecutionContext) Resources() []string {
	return c.resources
}

func (c *ExecutionContext) StateValue() (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasState {
		return nil, false
	}
	return c.stateValue, true
}

func (c *ExecutionContext) SetStateValue(value map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasState {
		return
	}
	c.stateValue = value
}
