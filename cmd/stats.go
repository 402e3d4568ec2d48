package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/engli-ai/engli/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show practice statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		stats, err := s.EventRepo().Stats(context.Background())
		if err != nil {
			return fmt.Errorf("aggregate stats: %w", err)
		}

		if stats.Turns == 0 {
			fmt.Println("No practice turns recorded yet.")
			return nil
		}

		fmt.Printf("Turns:          %d\n", stats.Turns)
		fmt.Printf("Sessions:       %d\n", stats.Sessions)
		fmt.Printf("Translated:     %d\n", stats.Translated)
		fmt.Printf("With audio:     %d\n", stats.AudioOK)
		fmt.Printf("Avg latency:    %dms\n", stats.AvgLatencyMs)

		if len(stats.ByModule) > 0 {
			fmt.Println()
			fmt.Println("By module:")
			names := make([]string, 0, len(stats.ByModule))
			for name := range stats.ByModule {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-24s %d\n", name, stats.ByModule[name])
			}
		}
		return nil
	},
}
