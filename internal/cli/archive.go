package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var archiveCleanupDays int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and maintain the update archive",
}

var archiveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the archive by outcome and skill",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Archiver == nil {
			return fmt.Errorf("archiver not initialized")
		}

		stats, err := Archiver.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Archived files: %d\n", stats.Total)
		if len(stats.ByState) > 0 {
			fmt.Println("\nBy outcome:")
			for _, state := range sortedKeys(stats.ByState) {
				fmt.Printf("  %-14s %d\n", state, stats.ByState[state])
			}
		}
		if len(stats.BySkill) > 0 {
			fmt.Println("\nBy skill:")
			for _, skill := range sortedKeys(stats.BySkill) {
				fmt.Printf("  %-24s %d\n", skill, stats.BySkill[skill])
			}
		}
		return nil
	},
}

var archiveCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete archived copies past the age threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Archiver == nil {
			return fmt.Errorf("archiver not initialized")
		}

		removed, err := Archiver.Cleanup(archiveCleanupDays)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d archived file(s).\n", removed)
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	archiveCleanupCmd.Flags().IntVar(&archiveCleanupDays, "older-than", 90, "Age threshold in days")
	archiveCmd.AddCommand(archiveStatsCmd)
	archiveCmd.AddCommand(archiveCleanupCmd)
	rootCmd.AddCommand(archiveCmd)
}
