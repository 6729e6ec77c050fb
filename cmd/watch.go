package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scriptpack/internal/daemon"
	"scriptpack/internal/logger"
	"scriptpack/internal/model"
	"scriptpack/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchInterval time.Duration
	watchDebounce int
)

var watchCmd = &cobra.Command{
	Use:   "watch <workspace> <archive>",
	Short: "Repack the archive whenever the workspace changes",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval := cfg.Watch.Interval
	if cmd.Flags().Changed("interval") {
		interval = watchInterval
	}
	debounce := cfg.Watch.DebounceTicks
	if cmd.Flags().Changed("debounce") {
		debounce = watchDebounce
	}

	events := daemon.NewEventLog()
	sess := newSession(session.WithEventHandler(func(ev model.WatchEvent) {
		events.Record(ev)
		if ev.Type == model.WatchSettled {
			logger.Log.Info("workspace settled",
				zap.Int("changes", len(ev.Changes)))
		}
	}))

	if err := sess.StartWatch(args[0], args[1], interval, debounce); err != nil {
		return err
	}

	srv := daemon.NewServer(sess, events, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("scriptpack watch started",
		zap.String("workspace", args[0]),
		zap.String("archive", args[1]),
		zap.Duration("interval", interval),
		zap.Int("debounce_ticks", debounce),
		zap.Int("port", cfg.DaemonPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "polling interval (default from config)")
	watchCmd.Flags().IntVar(&watchDebounce, "debounce", 0, "quiet ticks before packing (default from config)")
	rootCmd.AddCommand(watchCmd)
}
