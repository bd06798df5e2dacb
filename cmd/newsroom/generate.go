package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/jobs-newsroom/internal/memstore"
	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/pipeline"
	"github.com/jonathan/jobs-newsroom/internal/store"
	"github.com/jonathan/jobs-newsroom/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Run the pipeline once",
	Long: `Runs one pipeline invocation: rate check, content type rotation, candidate selection,
generation, and commit. Soft aborts (rate limited, no candidates) exit successfully.

With --dry-run the run uses an in-memory store seeded from --jobs, so nothing is written
to the database. Combine with --replay to also skip the model call.`,
	RunE: runGenerateCmd,
}

var (
	generateDryRun  bool
	generateJobs    string
	generateReplay  string
	generateVerbose bool
	generateJSON    bool
)

func init() {
	generateCommand.Flags().BoolVar(&generateDryRun, "dry-run", false, "Use an in-memory store instead of the database")
	generateCommand.Flags().StringVar(&generateJobs, "jobs", "", "JSON file of job records to seed the dry-run store")
	generateCommand.Flags().StringVar(&generateReplay, "replay", "", "JSON file replayed as the model response instead of calling the provider")
	generateCommand.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print each pipeline stage")
	generateCommand.Flags().BoolVar(&generateJSON, "json", false, "Print the trigger-style JSON result instead of a summary")

	rootCmd.AddCommand(generateCommand)
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if generateJobs != "" && !generateDryRun {
		return fmt.Errorf("--jobs requires --dry-run")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	var st store.Store
	if generateDryRun {
		mem := memstore.New()
		if generateJobs != "" {
			jobs, err := loadJobs(generateJobs)
			if err != nil {
				return err
			}
			mem.AddJobs(jobs...)
		}
		st = mem
	} else {
		database, err := connectDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		st = database
	}

	client, err := newClient(ctx, cfg, generateReplay)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	generatorName := cfg.GeneratorProvider
	if generateReplay != "" {
		generatorName = "replay"
	}

	gen, err := newGenerator(cfg, client)
	if err != nil {
		return err
	}

	orch := pipeline.New(st, gen, pipelineOptions(cfg, generatorName), logger, nil)
	if generateVerbose {
		orch.OnProgress(func(ev pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(out, "[%s] %s\n", ev.Stage, ev.Message)
		})
	}

	outcome, runErr := orch.Run(ctx)
	if generateJSON {
		return printJSONResult(out, outcome, runErr)
	}
	return printResult(out, outcome, runErr, logger)
}

// printResult summarizes the run; soft aborts are not errors
func printResult(out io.Writer, outcome *pipeline.Outcome, runErr error, logger *zap.Logger) error {
	printer := observability.NewPrinter(out)

	if runErr == nil {
		printer.PrintArticle(outcome.Article)
		return nil
	}

	var abortErr *pipeline.AbortError
	if errors.As(runErr, &abortErr) {
		if abortErr.Reason.Soft() {
			_, _ = fmt.Fprintf(out, "Skipped (%s): %s\n", abortErr.Reason, abortErr.Message)
			return nil
		}
		if abortErr.Article != nil {
			logger.Error("article published without bookkeeping",
				zap.Int64(observability.FieldArticleID, abortErr.Article.ID),
				zap.Bool(observability.FieldConsistencyWarning, true))
			printer.PrintArticle(abortErr.Article)
		}
	}
	return runErr
}

// jsonResult mirrors the trigger endpoint body
type jsonResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Reason  string       `json:"reason,omitempty"`
	Error   string       `json:"error,omitempty"`
	Article *jsonArticle `json:"article,omitempty"`
}

type jsonArticle struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Category    types.Category    `json:"category"`
	ContentType types.ContentType `json:"contentType"`
	JobsUsed    int               `json:"jobsUsed"`
}

func newJSONArticle(a *types.Article, jobsUsed int) *jsonArticle {
	return &jsonArticle{
		ID:          a.ID,
		Slug:        a.Slug,
		Title:       a.Title,
		Category:    a.Category,
		ContentType: a.ContentType,
		JobsUsed:    jobsUsed,
	}
}

func printJSONResult(out io.Writer, outcome *pipeline.Outcome, runErr error) error {
	res := jsonResult{Success: runErr == nil}
	if outcome != nil && outcome.Article != nil {
		res.Article = newJSONArticle(outcome.Article, outcome.JobsUsed)
	}

	var abortErr *pipeline.AbortError
	soft := false
	if errors.As(runErr, &abortErr) {
		res.Reason = string(abortErr.Reason)
		res.Message = abortErr.Message
		soft = abortErr.Reason.Soft()
		// Bookkeeping failures leave the article live
		if res.Article == nil && abortErr.Article != nil {
			res.Article = newJSONArticle(abortErr.Article, len(abortErr.Article.GenerationMetadata.JobsUsed))
		}
	}
	if runErr != nil && !soft {
		res.Error = runErr.Error()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if soft {
		return nil
	}
	return runErr
}

// loadJobs reads a JSON array of job records
func loadJobs(path string) ([]types.JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}
	var jobs []types.JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file %s: %w", path, err)
	}
	for i, j := range jobs {
		if j.ID == "" {
			return nil, fmt.Errorf("jobs file %s: record %d has no id", path, i)
		}
	}
	return jobs, nil
}
