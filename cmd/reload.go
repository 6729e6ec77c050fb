package cmd

import (
	"fmt"
	"net/http"

	"scriptpack/internal/daemon"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the ignore patterns of the running watch",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result daemon.ReloadResponse
		if err := callDaemon(http.MethodPost, "/reload", &result); err != nil {
			return err
		}

		source := "defaults"
		if result.FromFile {
			source = cfg.IgnoreFile
		}

		fmt.Printf("loaded %d patterns from %s\n", len(result.Patterns), source)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}
