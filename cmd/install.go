package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"scriptpack/internal/autostart"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <workspace> <archive>",
	Short: "Run a watch for this workspace at login",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		dest, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}

		as := autostart.New()
		if err := as.Install(autostart.Target{ExecPath: execPath, Workspace: root, Archive: dest}); err != nil {
			return err
		}

		fmt.Println("scriptpack watch registered for autostart")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
