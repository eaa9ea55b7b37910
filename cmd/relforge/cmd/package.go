package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/request"
)

var packageCmd = &cobra.Command{
	Use:   "package <signer> <version>",
	Short: "Verify, partition, and sign the final release artifacts",
	Long: `Re-verifies every published attestation, partitions the release
directory by artifact kind and platform, writes and clear-signs the
checksum manifest, and detach-signs every shipped file. A verification
failure aborts packaging.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, request.Stages{Verify: true, Package: true})
	},
}

func init() {
	registerStageFlags(packageCmd)
	rootCmd.AddCommand(packageCmd)
}
