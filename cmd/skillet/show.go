package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/presenter"
	"github.com/skillet-ai/skillet/pkg/skills"
)

var showCmd = &cobra.Command{
	Use:   "show <skill-dir>",
	Short: "Show a skill's descriptor, scripts, and resources",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		skill, err := skills.LoadFromDirectory(ctx, args[0])
		if err != nil {
			presenter.Error(err, "failed to load skill")
			os.Exit(1)
		}

		presenter.Section(skill.Metadata.Name)
		presenter.Info(skill.Metadata.Description)
		if skill.Metadata.License != "" {
			presenter.Info(fmt.Sprintf("License: %s", skill.Metadata.License))
		}
		if skill.Metadata.Compatibility != "" {
			presenter.Info(fmt.Sprintf("Compatibility: %s", skill.Metadata.Compatibility))
		}
		if len(skill.Metadata.AllowedTools) > 0 {
			presenter.Info(fmt.Sprintf("Allowed tools: %s", strings.Join(skill.Metadata.AllowedTools, ", ")))
		}

		if len(skill.Scripts) > 0 {
			presenter.Separator()
			presenter.Section("Script tools")
			for _, script := range skill.Scripts {
				presenter.Info(fmt.Sprintf("%s (%s): %s", script.Name, script.Path, script.Description))
			}
		}

		if len(skill.Resources) > 0 {
			presenter.Separator()
			presenter.Section("Resources")
			for _, resource := range skill.Resources {
				presenter.Info(resource)
			}
		}
	},
}
