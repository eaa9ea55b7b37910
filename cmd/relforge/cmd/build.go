package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/request"
)

var buildCmd = &cobra.Command{
	Use:   "build <signer> <version>",
	Short: "Build unsigned binaries for the enabled targets",
	Long: `Runs the deterministic builder for every enabled target, attests the
outputs into the signature ledger under <version>-<phase>/<signer>, and
moves the artifacts into the per-version release directory. All unsigned
attestations from one run land in a single ledger commit.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, request.Stages{Build: true})
	},
}

func init() {
	registerStageFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}
