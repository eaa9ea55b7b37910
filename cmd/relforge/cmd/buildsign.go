package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/request"
)

var buildsignCmd = &cobra.Command{
	Use:   "buildsign <signer> <version>",
	Short: "Build and sign in one run",
	Long:  `Runs the build stage followed by the sign stage.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, request.Stages{Build: true, Sign: true})
	},
}

func init() {
	registerStageFlags(buildsignCmd)
	rootCmd.AddCommand(buildsignCmd)
}
