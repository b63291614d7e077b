// Package sysprompt renders the system prompts for the outer agent (skill
// catalog plus delegation guidance) and for the per-skill sub-agent (task,
// instructions, bundled resources, script tools).
package sysprompt

import (
	"fmt"
	"strings"

	"github.com/skillet-ai/skillet/pkg/skills"
)

// DefaultPreamble opens the outer agent's system prompt unless the caller
// supplies its own.
const DefaultPreamble = "You are a helpful assistant with access to specialized skills."

// MainAgent renders the outer agent's system prompt from the registered
// skill catalog.
func MainAgent(preamble string, catalog []skills.Metadata) string {
	if preamble == "" {
		preamble = DefaultPreamble
	}

	var entries []string
	for _, meta := range catalog {
		entries = append(entries, fmt.Sprintf("- **%s**: %s", meta.Name, meta.Description))
	}
	catalogSection := strings.Join(entries, "\n")
	if catalogSection == "" {
		catalogSection = "(no skills registered)"
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n## Available skills\n\n")
	b.WriteString(catalogSection)
	b.WriteString("\n\n## Instructions\n\n")
	b.WriteString("- For general conversation or questions that don't need skills, respond directly\n")
	b.WriteString("- Use execute_skill to delegate work to a skill. Include everything the skill needs in the request\n")
	b.WriteString("- For multi-step tasks, call skills sequentially — pass results from earlier calls into later requests\n")
	b.WriteString("- Skills cannot see each other's results unless you pass them explicitly")
	return b.String()
}

// SubAgent renders the isolated sub-agent's system prompt for one skill
// execution. Resource and script sections appear only when the skill bundles
// them.
func SubAgent(task string, skill *skills.Skill) string {
	var b strings.Builder
	b.WriteString("You are a focused execution agent. Complete the following task using the skills and instructions provided.\n")
	b.WriteString("\n## Task\n\n")
	b.WriteString(strings.TrimSpace(task))
	b.WriteString("\n\n## Skill instructions\n\n")
	b.WriteString(strings.TrimSpace(skill.Instructions))
	b.WriteString("\n\n")

	if len(skill.Resources) > 0 {
		b.WriteString("## Bundled resources\n\n")
		b.WriteString("Use read_resource to read any of these files:\n")
		for _, resource := range skill.Resources {
			fmt.Fprintf(&b, "- %s\n", resource)
		}
		b.WriteString("\n")
	}

	if len(skill.Scripts) > 0 {
		b.WriteString("## Script tools\n\n")
		b.WriteString("These scripts are exposed as tools; call them with their declared parameters:\n")
		for _, script := range skill.Scripts {
			fmt.Fprintf(&b, "- %s: %s\n", script.Name, script.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Guidelines\n\n")
	b.WriteString("- Follow the skill instructions carefully\n")
	b.WriteString("- Stay focused on the specific task described above\n")
	b.WriteString("- Provide a clear, complete result")
	return b.String()
}
