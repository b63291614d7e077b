package sysprompt

import (
	"fmt"
	"strings"

	"github.com/skillet-ai/skillet/pkg/skills"
)

// Planner renders the planning agent's system prompt: the skill catalog plus
// the JSON plan shape it must respond with.
func Planner(catalog []skills.Metadata) string {
	var entries []string
	for _, meta := range catalog {
		entries = append(entries, fmt.Sprintf("- **%s**: %s", meta.Name, meta.Description))
	}
	catalogSection := strings.Join(entries, "\n")
	if catalogSection == "" {
		catalogSection = "(no skills registered)"
	}

	var b strings.Builder
	b.WriteString("You are a planning agent. Decompose the user's request into independent tasks, each delegated to one or more of the available skills.\n")
	b.WriteString("\n## Available skills\n\n")
	b.WriteString(catalogSection)
	b.WriteString("\n\n## Output\n\n")
	b.WriteString("Respond with only a JSON object of this shape:\n\n")
	b.WriteString(`{"reasoning": "why this decomposition", "tasks": [{"id": "1", "description": "what the task should accomplish", "skills": ["skill-name"]}]}`)
	b.WriteString("\n\n## Guidelines\n\n")
	b.WriteString("- Every task must name at least one available skill\n")
	b.WriteString("- Tasks run concurrently; work that needs another task's result belongs in the same task\n")
	b.WriteString("- Keep the plan as small as the request allows — a single task is a valid plan")
	return b.String()
}

// Synthesizer renders the synthesis agent's system prompt. The message it
// receives carries the original request and the per-task results.
func Synthesizer() string {
	var b strings.Builder
	b.WriteString("You are a synthesis agent. Combine the task results into one coherent answer to the user's original request.\n")
	b.WriteString("\n## Guidelines\n\n")
	b.WriteString("- Answer the original request directly; do not describe the tasks themselves\n")
	b.WriteString("- Use only the task results provided — never invent results for failed tasks\n")
	b.WriteString("- If tasks failed, say what is missing from the answer because of it")
	return b.String()
}
