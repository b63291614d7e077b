package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/presenter"
	"github.com/skillet-ai/skillet/pkg/skills"
)

var validateCmd = &cobra.Command{
	Use:   "validate <skill-dir> [skill-dir...]",
	Short: "Validate skill directories",
	Long:  `Validate checks each skill directory like discovery would, but reports every problem it finds, including script manifest issues that discovery only warns about.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		failed := false

		for _, dir := range args {
			err := skills.ValidateDirectory(ctx, dir)
			if err == nil {
				presenter.Success(fmt.Sprintf("%s: VALID", dir))
				continue
			}

			failed = true
			presenter.Info(fmt.Sprintf("%s: INVALID", dir))
			if merr, ok := err.(*multierror.Error); ok {
				for _, problem := range merr.Errors {
					presenter.Error(problem, "")
				}
			} else {
				presenter.Error(err, "")
			}
		}

		if failed {
			os.Exit(1)
		}
	},
}
