package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/request"
)

var setupCmd = &cobra.Command{
	Use:   "setup <signer> <version>",
	Short: "Prepare the build host",
	Long: `Installs the host packages for the chosen isolation mode, clones the
builder toolchain, the signature ledger, and the detached-sigs repository,
constructs the base image, and fetches the pinned toolchain inputs. Safe
to re-run.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, request.Stages{Setup: true})
	},
}

func init() {
	registerStageFlags(setupCmd)
	rootCmd.AddCommand(setupCmd)
}
