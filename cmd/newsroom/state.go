package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonathan/jobs-newsroom/internal/config"
	"github.com/jonathan/jobs-newsroom/internal/coverage"
	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/rotation"
	"github.com/jonathan/jobs-newsroom/internal/store"
	"github.com/jonathan/jobs-newsroom/internal/types"
	"github.com/spf13/cobra"
)

var statePreview bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the generation state and what the next run would do",
	RunE:  runStateCmd,
}

func init() {
	stateCmd.Flags().BoolVar(&statePreview, "preview", false, "Also list the jobs the next run would cover")
	rootCmd.AddCommand(stateCmd)
}

func runStateCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return printState(ctx, cmd.OutOrStdout(), database, cfg, time.Now(), statePreview)
}

// printState reports the rotation cursor, the next content type and category,
// and optionally the candidate jobs. It only reads from r.
func printState(ctx context.Context, out io.Writer, r store.Reader, cfg *config.Config, now time.Time, preview bool) error {
	state, err := r.GetGenerationState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read generation state: %w", err)
	}

	cadence := rotation.NewCadence(cfg.MinRunInterval.Std())
	next := rotation.NextContentType(state)
	nextAllowed := cadence.NextAllowedAt(state)
	if cadence.ShouldRun(state, now) {
		nextAllowed = time.Time{}
	}

	printer := observability.NewPrinter(out)
	printer.PrintState(state, next, nextAllowed)

	var category *types.Category
	if next == types.ContentTypeRoundup {
		counts, err := r.CountRoundupsByCategory(ctx, cfg.ArticleApp)
		if err != nil {
			return fmt.Errorf("failed to count roundups: %w", err)
		}
		c := rotation.NextCategory(counts)
		category = &c
	}

	if !preview {
		if category != nil {
			_, _ = fmt.Fprintf(out, "Next roundup category: %s\n", *category)
		}
		return nil
	}

	tracker := coverage.NewTracker(r, nil, coverage.Windows{
		Spotlight: cfg.SpotlightWindow.Std(),
		Roundup:   cfg.RoundupWindow.Std(),
	}).WithClock(func() time.Time { return now })

	jobs, err := tracker.Select(ctx, next, category, cfg.RoundupLimit)
	if err != nil {
		return fmt.Errorf("failed to select candidates: %w", err)
	}
	printer.PrintCandidates(next, category, jobs)
	return nil
}
