// Package cli implements the skillsync command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "skillsync",
	Short: "skillsync - living-document update workflow engine",
	Long: `skillsync keeps expert skill documents alive: update files dropped in an
inbox are validated, merged into the right section of the target document,
routed through expert approval when policy requires it, and archived with a
full audit trail.

It provides CLI commands for processing and previewing updates, deciding
approvals, inspecting the queue, and managing the archive.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("skillsync %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
