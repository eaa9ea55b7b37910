package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/request"
)

var codesignCmd = &cobra.Command{
	Use:   "codesign <signer> <version>",
	Short: "Create detached code signatures for the windows binaries",
	Long: `Stages the unsigned windows binaries into a per-version signing
directory, runs the external signing procedure against the release
signing key, and publishes the resulting detached-signature archive to
the detached-sigs repository with a signed tag.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, request.Stages{Codesign: true})
	},
}

func init() {
	registerStageFlags(codesignCmd)
	rootCmd.AddCommand(codesignCmd)
}
