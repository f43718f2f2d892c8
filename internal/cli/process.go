package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhalvorsen/skillsync/internal/integrate"
	"github.com/mhalvorsen/skillsync/internal/watcher"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

var processDryRun bool

var processCmd = &cobra.Command{
	Use:   "process [file...]",
	Short: "Process update files through the workflow",
	Long: `Process one or more update markdown files: queue them, validate them,
merge them into their target documents, and route them to approval when the
skill's policy requires it.

With no arguments, every update file currently in the inbox is processed.
With --dry-run the proposed changes are computed and shown but nothing is
written to any document or queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Workflow == nil || Integrations == nil {
			return fmt.Errorf("workflow not initialized")
		}

		paths := args
		if len(paths) == 0 {
			var err error
			paths, err = inboxFiles()
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Println("Inbox is empty.")
				return nil
			}
		}

		for _, path := range paths {
			update, err := watcher.ParseUpdateFile(path)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}

			if processDryRun {
				result, err := Integrations.ProcessUpdate(*update, integrate.Options{DryRun: true})
				if err != nil {
					return err
				}
				printResult(update, result)
				continue
			}

			item, err := Workflow.ProcessUpdate(*update)
			if err != nil {
				return err
			}
			printItem(item)
		}
		return nil
	},
}

// inboxFiles lists the update files waiting in the configured inbox.
func inboxFiles() ([]string, error) {
	if Cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	entries, err := os.ReadDir(Cfg.InboxDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, ".") {
			continue
		}
		paths = append(paths, filepath.Join(Cfg.InboxDir, name))
	}
	return paths, nil
}

func printResult(update *models.UpdateFile, result *models.IntegrationResult) {
	fmt.Printf("%s -> %s [%s]\n", update.Name, update.SkillID, result.Status)
	if result.Error != "" {
		fmt.Printf("  error: %s\n", result.Error)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	if result.Preview != nil {
		fmt.Printf("  target section: %s\n", result.Preview.TargetSection)
		if result.Preview.RequiresApproval {
			fmt.Println("  requires approval")
		}
	}
}

func printItem(item *models.QueuedUpdate) {
	fmt.Printf("%s -> %s [%s] (queue id %s)\n",
		item.Update.Name, item.Update.SkillID, item.State, item.ID)
	if item.Result != nil && item.Result.Error != "" {
		fmt.Printf("  error: %s\n", item.Result.Error)
	}
	if item.State == models.StatePendingApproval {
		fmt.Printf("  approve with: skillsync approve %s --by <name>\n", item.ID)
	}
}

func init() {
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "Compute and show the changes without writing anything")
	rootCmd.AddCommand(processCmd)
}
