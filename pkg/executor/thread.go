// Package executor dispatches skill executions: it looks a skill up in the
// registry, builds an isolated execution context with exactly that skill's
// instructions, tools, and state, runs a sub-agent thread to completion, and
// commits the state with a JSON Patch delta describing what changed.
package executor

import (
	"context"

	tooltypes "github.com/skillet-ai/skillet/pkg/types/tools"
)

// Thread is one model conversation. SendMessage drives the model loop to
// completion, dispatching tool calls against the given execution state, and
// returns the final assistant text. Implementations decide provider, model,
// and loop mechanics.
type Thread interface {
	SendMessage(ctx context.Context, message string, state tooltypes.State) (string, error)
}

// ThreadFactory creates a fresh thread for one sub-agent execution. A new
// thread per execution is what keeps sub-agents isolated: no history, no
// tools, and no state leak between executions or back to the outer agent.
type ThreadFactory func(systemPrompt string) (Thread, error)
