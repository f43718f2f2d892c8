package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhalvorsen/skillsync/internal/watcher"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show the change an update would make without applying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Integrations == nil {
			return fmt.Errorf("workflow not initialized")
		}

		update, err := watcher.ParseUpdateFile(args[0])
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		preview, err := Integrations.PreviewUpdate(*update)
		if err != nil {
			return err
		}

		fmt.Printf("Update:  %s\n", update.Name)
		fmt.Printf("Skill:   %s\n", update.SkillID)
		fmt.Printf("Section: %s\n", preview.TargetSection)
		if preview.RequiresApproval {
			fmt.Println("Approval: required")
		} else {
			fmt.Println("Approval: not required")
		}
		for _, w := range preview.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}
		fmt.Println()
		fmt.Println(strings.Join(preview.Diff, "\n"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
