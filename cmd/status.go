package cmd

import (
	"fmt"
	"net/http"
	"time"

	"scriptpack/internal/daemon"
	"scriptpack/internal/model"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the running watch",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result daemon.StatusResponse
		if err := callDaemon(http.MethodGet, "/status", &result); err != nil {
			return err
		}

		st := result.Watch
		if st.State == model.WatchStopped {
			fmt.Println("no active watch")
			return nil
		}

		lastPack := "-"
		if st.LastPack != nil {
			lastPack = st.LastPack.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("%-10s %-8s %-8s %-8s %-7s %s\n",
			"STATE", "FILES", "PACKS", "FAILED", "PENDING", "LAST PACK")
		fmt.Printf("%-10s %-8d %-8d %-8d %-7t %s\n",
			st.State, st.Files, st.Packs, st.Failed, st.Pending, lastPack)
		fmt.Printf("  workspace: %s\n", st.Workspace)
		fmt.Printf("  archive:   %s\n", st.Archive)
		fmt.Printf("  uptime:    %s (every %s, %d quiet ticks)\n",
			time.Since(st.StartedAt).Round(time.Second), st.Interval, st.Debounce)

		if st.LastError != "" {
			fmt.Printf("  last error: %s\n", st.LastError)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
