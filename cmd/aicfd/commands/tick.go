package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aicfd/aicfd/internal/app"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one pipeline pass: cache writers, consolidation, session, drop-off",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := resolvedBaseDir()
		if err != nil {
			return fmt.Errorf("resolve base dir: %w", err)
		}

		a, err := app.New(baseDir)
		if err != nil {
			return err
		}

		stats, err := a.Orchestrator.Tick(context.Background())
		if err != nil {
			return err
		}

		if stats.Skipped {
			fmt.Println("tick skipped: the pipeline lock is held by another run")
			return nil
		}

		fmt.Printf("tick %s: %d chunks written, %d conversations consolidated, %d sessions written, %d files dropped off (%s)\n",
			stats.TickID, stats.ChunksWritten, stats.ConversationsOut, stats.SessionsWritten, stats.FilesDroppedOff, stats.Duration)
		return nil
	},
}
