package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aicfd/aicfd/internal/app"
	"github.com/aicfd/aicfd/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the orchestrator as a daemon loop, ticking on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := resolvedBaseDir()
		if err != nil {
			return err
		}

		a, err := app.New(baseDir)
		if err != nil {
			return err
		}

		interval := a.Config.TickInterval()
		if tickInterval > 0 {
			interval = time.Duration(tickInterval) * time.Millisecond
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			logging.Info().Msg("received shutdown signal")
			cancel()
		}()

		if a.DirtyWatcher != nil {
			go a.DirtyWatcher.Run()
			defer a.DirtyWatcher.Close()
		}

		logging.Info().Dur("interval", interval).Msg("watcher starting")
		a.Orchestrator.Start(ctx, interval)
		logging.Info().Msg("watcher stopped")
		return nil
	},
}
