package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mhalvorsen/skillsync/internal/watcher"
	"github.com/mhalvorsen/skillsync/pkg/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox and process updates as they arrive",
	Long: `Watch the inbox directory and run every new update file through the
workflow. Files already in the inbox are processed on startup, and approval
timers for updates left pending by a previous run are re-armed.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Workflow == nil || Cfg == nil {
			return fmt.Errorf("workflow not initialized")
		}

		Workflow.Resume()
		defer Workflow.Stop()

		w := watcher.New(Cfg.InboxDir, func(update models.UpdateFile) {
			item, err := Workflow.ProcessUpdate(update)
			if err != nil {
				fmt.Fprintf(os.Stderr, "processing %s: %v\n", update.Name, err)
				return
			}
			printItem(item)
		}, EventLog)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Printf("Watching %s for updates...\n", Cfg.InboxDir)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
