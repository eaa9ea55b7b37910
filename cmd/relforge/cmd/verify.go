package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/relforge/internal/request"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <signer> <version>",
	Short: "Verify every published attestation for a version",
	Long: `Pulls the signature ledger and checks all five build phases against it.
Every probe runs even when an earlier one fails; any failure makes the
command exit non-zero.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args, request.Stages{Verify: true})
	},
}

func init() {
	registerStageFlags(verifyCmd)
	rootCmd.AddCommand(verifyCmd)
}
