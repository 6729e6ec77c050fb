package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"scriptpack/internal/ignore"
	"scriptpack/internal/util"

	"github.com/spf13/cobra"
)

var ignoreForce bool

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Inspect and manage a workspace's ignore patterns",
}

var ignoreShowCmd = &cobra.Command{
	Use:   "show [workspace]",
	Short: "Print the effective ignore patterns",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := workspaceArg(args)

		patterns, found, err := ignore.Load(root, cfg.IgnoreFile, cfg.DefaultIgnore)
		if err != nil {
			return err
		}
		if _, err := ignore.Compile(patterns); err != nil {
			return err
		}

		if found {
			fmt.Printf("# from %s\n", filepath.Join(root, cfg.IgnoreFile))
		} else {
			fmt.Println("# built-in defaults")
		}
		for _, p := range patterns {
			fmt.Println(p)
		}
		return nil
	},
}

var ignoreInitCmd = &cobra.Command{
	Use:   "init [workspace]",
	Short: "Write the default ignore patterns to the workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := workspaceArg(args)
		path := filepath.Join(root, cfg.IgnoreFile)

		exists, err := util.Exists(path)
		if err != nil {
			return err
		}
		if exists && !ignoreForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		if err := ignore.Write(root, cfg.IgnoreFile, cfg.DefaultIgnore); err != nil {
			return err
		}

		fmt.Printf("wrote %d patterns to %s\n", len(cfg.DefaultIgnore), path)
		return nil
	},
}

var ignoreCheckCmd = &cobra.Command{
	Use:   "check <workspace> <path>...",
	Short: "Report whether workspace paths are excluded",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]

		m, err := ignore.LoadMatcher(root, cfg.IgnoreFile, cfg.DefaultIgnore)
		if err != nil {
			return err
		}

		for _, rel := range args[1:] {
			isDir := false
			info, err := os.Stat(filepath.Join(root, rel))
			switch {
			case err == nil:
				isDir = info.IsDir()
			case !errors.Is(err, fs.ErrNotExist):
				return err
			}

			verdict := "kept"
			if r, ok := m.Why(rel, isDir); ok {
				verdict = "ignored by " + r.Pattern
			}
			fmt.Printf("%s: %s\n", rel, verdict)
		}
		return nil
	},
}

func workspaceArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func init() {
	ignoreInitCmd.Flags().BoolVar(&ignoreForce, "force", false, "overwrite an existing ignore file")
	ignoreCmd.AddCommand(ignoreShowCmd, ignoreInitCmd, ignoreCheckCmd)
	rootCmd.AddCommand(ignoreCmd)
}
