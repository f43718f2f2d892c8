package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mhalvorsen/skillsync/pkg/models"
)

var (
	queueListState   string
	queueCleanupDays int
)

// State colors mirror the dashboard.
var stateStyles = map[models.WorkflowState]lipgloss.Style{
	models.StateProcessing:      lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	models.StatePendingApproval: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	models.StateIntegrated:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	models.StateFailed:          lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	models.StateRejected:        lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	models.StateArchived:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

func styleForState(state models.WorkflowState) lipgloss.Style {
	if style, ok := stateStyles[state]; ok {
		return style
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and maintain the update queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		var items []models.QueuedUpdate
		if queueListState != "" {
			state := models.WorkflowState(queueListState)
			if !state.Valid() {
				return fmt.Errorf("invalid state %q", queueListState)
			}
			items = Queue.List(state)
		} else {
			items = Queue.List()
		}

		if len(items) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		fmt.Printf("%-36s %-18s %-20s %-12s %s\n", "ID", "STATE", "SKILL", "TYPE", "UPDATE")
		for _, item := range items {
			state := styleForState(item.State).Render(fmt.Sprintf("%-18s", item.State))
			fmt.Printf("%-36s %s %-20s %-12s %s\n",
				item.ID, state, item.Update.SkillID, item.Update.Metadata.Type, item.Update.Name)
		}
		return nil
	},
}

var queueShowCmd = &cobra.Command{
	Use:   "show <queue-id>",
	Short: "Show one queue item with its full history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		item, err := Queue.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:      %s\n", item.ID)
		fmt.Printf("Update:  %s\n", item.Update.Name)
		fmt.Printf("Skill:   %s\n", item.Update.SkillID)
		fmt.Printf("Type:    %s\n", item.Update.Metadata.Type)
		fmt.Printf("Section: %s\n", item.Update.Metadata.TargetSection)
		fmt.Printf("State:   %s\n", styleForState(item.State).Render(string(item.State)))
		if item.Result != nil {
			fmt.Printf("Result:  %s\n", item.Result.Status)
			if item.Result.Error != "" {
				fmt.Printf("Error:   %s\n", item.Result.Error)
			}
			if len(item.Result.Warnings) > 0 {
				fmt.Printf("Warnings: %s\n", strings.Join(item.Result.Warnings, "; "))
			}
		}
		if item.Approval != nil {
			fmt.Printf("Approval requested: %s\n", item.Approval.RequestedAt.Format(time.RFC3339))
			if item.Approval.ExpiresAt != nil {
				fmt.Printf("Approval expires:   %s\n", item.Approval.ExpiresAt.Format(time.RFC3339))
			}
			if d := item.Approval.Decision; d != nil {
				verdict := "rejected"
				if d.Approved {
					verdict = "approved"
				}
				fmt.Printf("Decision: %s by %s at %s\n", verdict, d.Approver, d.DecidedAt.Format(time.RFC3339))
				if d.Reason != "" {
					fmt.Printf("Reason:   %s\n", d.Reason)
				}
			}
		}

		fmt.Println("\nHistory:")
		for _, event := range item.History {
			fmt.Printf("  %s  %-18s %-10s %s\n",
				event.Timestamp.Format(time.RFC3339), event.State, event.Actor, event.Message)
		}
		return nil
	},
}

var queueCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old integrated and archived queue records",
	Long: `Remove queue records whose state is integrated or archived and whose last
update is older than the given age. Pending and failed items are never
removed; failures require an explicit decision.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue not initialized")
		}

		removed, err := Queue.Cleanup(queueCleanupDays)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d queue record(s).\n", removed)
		return nil
	},
}

func init() {
	queueListCmd.Flags().StringVar(&queueListState, "state", "", "Filter by workflow state")
	queueCleanupCmd.Flags().IntVar(&queueCleanupDays, "older-than", 30, "Age threshold in days")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueShowCmd)
	queueCmd.AddCommand(queueCleanupCmd)
	rootCmd.AddCommand(queueCmd)
}
