package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var packCmd = &cobra.Command{
	Use:   "pack <workspace> <archive>",
	Short: "Pack a workspace into an archive, backing up the old one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newSession()

		result, err := sess.Pack(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("packed %d files into %s (%d bytes)\n", result.Files, result.Archive, result.Bytes)
		if result.Backup != nil {
			fmt.Printf("previous archive saved as %s\n", result.Backup.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
}
