package cmd

import (
	"fmt"

	"scriptpack/internal/session"

	"github.com/spf13/cobra"
)

var extractRequireEmpty bool

var extractCmd = &cobra.Command{
	Use:   "extract <archive> <workspace>",
	Short: "Extract an archive into a workspace directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newSession()

		report, err := sess.Extract(cmd.Context(), args[0], args[1], session.ExtractOptions{
			RequireEmpty: extractRequireEmpty,
		})
		if err != nil {
			return err
		}

		fmt.Printf("extracted %d files, %d dirs (%d bytes, %d overwritten) into %s\n",
			report.Files, report.Dirs, report.Bytes, report.Overwritten, args[1])
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractRequireEmpty, "require-empty", false, "refuse to extract into a non-empty directory")
	rootCmd.AddCommand(extractCmd)
}
