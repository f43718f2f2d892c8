package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	rejectBy     string
	rejectReason string
)

var rejectCmd = &cobra.Command{
	Use:   "reject <queue-id>",
	Short: "Reject a pending update, leaving the document untouched",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Workflow == nil {
			return fmt.Errorf("workflow not initialized")
		}

		item, err := Workflow.Reject(args[0], approverName(rejectBy), rejectReason)
		if err != nil {
			return err
		}
		printItem(item)
		return nil
	},
}

func init() {
	rejectCmd.Flags().StringVar(&rejectBy, "by", "", "Name of the rejecter (defaults to the OS user)")
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Optional note recorded with the decision")
	rootCmd.AddCommand(rejectCmd)
}
