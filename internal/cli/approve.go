package cli

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"
)

var (
	approveBy     string
	approveReason string
)

var approveCmd = &cobra.Command{
	Use:   "approve <queue-id>",
	Short: "Approve a pending update and integrate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Workflow == nil {
			return fmt.Errorf("workflow not initialized")
		}

		item, err := Workflow.Approve(args[0], approverName(approveBy), approveReason)
		if err != nil {
			return err
		}
		printItem(item)
		return nil
	},
}

// approverName falls back to the OS user when --by is omitted.
func approverName(flag string) string {
	if flag != "" {
		return flag
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func init() {
	approveCmd.Flags().StringVar(&approveBy, "by", "", "Name of the approver (defaults to the OS user)")
	approveCmd.Flags().StringVar(&approveReason, "reason", "", "Optional note recorded with the decision")
	rootCmd.AddCommand(approveCmd)
}
