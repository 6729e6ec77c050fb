package cmd

import (
	"fmt"
	"os"

	"scriptpack/internal/backup"
	"scriptpack/internal/config"
	"scriptpack/internal/db"
	"scriptpack/internal/logger"
	"scriptpack/internal/repository"
	"scriptpack/internal/session"

	"github.com/spf13/cobra"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:           "scriptpack",
	Short:         "Pack and unpack .ts4script archives from a workspace",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		dbCmds := map[string]bool{
			"extract": true, "pack": true, "watch": true, "history": true,
		}
		if dbCmds[cmd.Name()] {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = db.Close()
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSession(opts ...session.Option) *session.Session {
	opts = append(opts, session.WithRecorder(repository.NewHistoryRepository()))
	return session.New(cfg, backup.NewGuard(), opts...)
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.DaemonPort, path)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
}
