package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the skillet version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}
