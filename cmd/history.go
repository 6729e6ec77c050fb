package cmd

import (
	"fmt"

	"scriptpack/internal/model"
	"scriptpack/internal/repository"

	"github.com/spf13/cobra"
)

var historyN int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View pack and extract history",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := repository.NewHistoryRepository()

		histories, err := repo.GetRecent(historyN)
		if err != nil {
			return err
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range histories {
			status := "✓"
			if h.Status == model.StatusFailed {
				status = "✗"
			}

			fmt.Printf("%s [%s] %-7s %-6s %4d files  %s\n",
				status,
				h.FinishedAt.Format("2006-01-02 15:04:05"),
				h.Operation,
				h.Trigger,
				h.Files,
				h.Archive,
			)
			if h.ErrMsg != "" {
				fmt.Printf("    %s\n", h.ErrMsg)
			}
		}

		stats, err := repo.GetStats()
		if err != nil {
			return err
		}
		fmt.Printf("\n%d operations, %d failed, %d packs\n", stats.Total, stats.Failed, stats.Packs)

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	rootCmd.AddCommand(historyCmd)
}
