package sysprompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillet-ai/skillet/pkg/scripts"
	"github.com/skillet-ai/skillet/pkg/skills"
)

func TestMainAgent(t *testing.T) {
	catalog := []skills.Metadata{
		{Name: "calculator", Description: "Arithmetic with history"},
		{Name: "weather", Description: "Weather lookups"},
	}

	prompt := MainAgent("", catalog)

	assert.Contains(t, prompt, DefaultPreamble)
	assert.Contains(t, prompt, "- **calculator**: Arithmetic with history")
	assert.Contains(t, prompt, "- **weather**: Weather lookups")
	assert.Contains(t, prompt, "execute_skill")
}

func TestMainAgentCustomPreamble(t *testing.T) {
	prompt := MainAgent("You are a billing assistant.", nil)
	assert.Contains(t, prompt, "You are a billing assistant.")
	assert.NotContains(t, prompt, DefaultPreamble)
	assert.Contains(t, prompt, "(no skills registered)")
}

func TestSubAgent(t *testing.T) {
	skill := &skills.Skill{
		Metadata:     skills.Metadata{Name: "calculator", Description: "Arithmetic"},
		Instructions: "Evaluate expressions and record them.",
		Resources:    []string{"reference/tables.md"},
		Scripts: []scripts.Spec{
			{Name: "calc_add", Description: "Add two numbers"},
		},
	}

	prompt := SubAgent("What is 2 + 2?", skill)

	assert.Contains(t, prompt, "## Task")
	assert.Contains(t, prompt, "What is 2 + 2?")
	assert.Contains(t, prompt, "Evaluate expressions and record them.")
	assert.Contains(t, prompt, "reference/tables.md")
	assert.Contains(t, prompt, "calc_add: Add two numbers")
	assert.Contains(t, prompt, "## Guidelines")
}

func TestSubAgentOmitsEmptySections(t *testing.T) {
	skill := &skills.Skill{
		Metadata:     skills.Metadata{Name: "bare", Description: "Bare"},
		Instructions: "Do the thing.",
	}

	prompt := SubAgent("task", skill)
	assert.NotContains(t, prompt, "## Bundled resources")
	assert.NotContains(t, prompt, "## Script tools")
}
