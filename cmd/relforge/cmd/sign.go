package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/request"
)

var signCmd = &cobra.Command{
	Use:   "sign <signer> <version>",
	Short: "Apply detached code signatures to the unsigned binaries",
	Long: `Re-runs the builder in signature-apply mode for the windows and macos
targets, combining the unsigned archives with the published detached
signatures, attests the signed results, and moves them into the release
directory.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, request.Stages{Sign: true})
	},
}

func init() {
	registerStageFlags(signCmd)
	rootCmd.AddCommand(signCmd)
}
