package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"networth-analyzer/config"
	"networth-analyzer/scraper/remote"
	"networth-analyzer/services"
	"networth-analyzer/storage"
	"networth-analyzer/utils"
)

// errSourcesFailed signals that at least one source failed and was already
// reported to the user.
var errSourcesFailed = errors.New("one or more sources failed")

func main() {
	os.Exit(exitCode(newRootCmd().Execute()))
}

// exitCode maps the command result to the process exit status. Failures
// have already been reported by the time Execute returns.
func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		reportPath string
		persist    bool
		history    int
	)

	cmd := &cobra.Command{
		Use:   "networth [source...]",
		Short: "Report the richest person and missing contact details in a people CSV",
		Long: `Reads one or more CSV sources (local paths or http(s) URLs) with a throwaway
label row followed by a header row containing Name, Email, Phone Number and
Net Worth, and prints the richest person and the number of missing emails and
phone numbers for each source.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("report") {
				cfg.ReportCSVPath = reportPath
			}
			if persist {
				cfg.PersistRuns = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			logger := utils.NewLogger(cfg.LogLevel)
			if history > 0 {
				return showHistory(ctx, cmd.OutOrStdout(), cfg, logger, history)
			}
			return run(ctx, cmd.OutOrStdout(), cfg, logger, args)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "append each summary to this CSV report (overrides REPORT_CSV_PATH)")
	cmd.Flags().BoolVar(&persist, "persist", false, "store each summary in PostgreSQL (same as PERSIST_RUNS=true)")
	cmd.Flags().IntVar(&history, "history", 0, "print the N most recent stored runs and exit")
	return cmd
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, logger *utils.Logger, sources []string) error {
	if len(sources) == 0 {
		sources = []string{cfg.Source}
	}

	fetcher := remote.New(cfg, logger)
	opener := services.OpenerFunc(func(ctx context.Context, source string) (io.ReadCloser, error) {
		if remote.IsRemote(source) {
			return fetcher.Open(ctx, source)
		}
		return storage.OpenFile(source)
	})

	var sinks []storage.SummaryWriter
	if cfg.ReportCSVPath != "" {
		rw, err := storage.NewReportWriter(cfg.ReportCSVPath)
		if err != nil {
			logger.Error("Failed to open report: %v", err)
		} else {
			sinks = append(sinks, rw)
		}
	}
	defer closeSinks(sinks, logger)

	var runStore storage.RunRecorder
	if cfg.PersistRuns {
		rs, err := openRunStore(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
		} else {
			defer rs.Close()
			runStore = rs
		}
	}

	analyzer := services.NewAnalyzer(opener, logger, cfg.MaxConcurrency, cfg.RateLimitMs)
	results := analyzer.AnalyzeAll(ctx, sources)

	failed := false
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if res.Err != nil {
			failed = true
			fmt.Fprintln(out, describeError(res.Source, res.Err))
			continue
		}

		services.PrintSummary(out, res.Summary)

		for _, sink := range sinks {
			if err := sink.Write(res.Summary); err != nil {
				logger.Error("Report write failed: %v", err)
			}
		}
		if runStore != nil {
			if err := runStore.Record(ctx, res.Summary); err != nil {
				logger.Error("PostgreSQL write failed: %v", err)
			}
		}
	}

	if failed {
		return errSourcesFailed
	}
	return nil
}

// closeSinks flushes and closes every report sink, logging failures.
func closeSinks(sinks []storage.SummaryWriter, logger *utils.Logger) {
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			logger.Error("Report close failed: %v", err)
		}
	}
}

// describeError renders the user-facing message for a failed source.
func describeError(source string, err error) string {
	var mismatch *storage.SchemaMismatchError
	switch {
	case errors.Is(err, storage.ErrSourceNotFound):
		return fmt.Sprintf("Error: The file '%s' was not found. Please ensure it's in the correct directory.", source)
	case errors.As(err, &mismatch):
		return fmt.Sprintf("Error: Missing expected column in CSV header: %s", strings.Join(mismatch.Missing, ", "))
	default:
		return fmt.Sprintf("An unexpected error occurred: %v", err)
	}
}

func openRunStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.RunStore, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}
	return storage.NewRunStore(ctx, cfg.DSN(), retry)
}

func showHistory(ctx context.Context, out io.Writer, cfg *config.Config, logger *utils.Logger, limit int) error {
	rs, err := openRunStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(out, "An unexpected error occurred: %v\n", err)
		return err
	}
	defer rs.Close()

	runs, err := rs.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(out, "An unexpected error occurred: %v\n", err)
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs")
		return nil
	}
	for _, r := range runs {
		richest := "(none)"
		if r.Found {
			richest = fmt.Sprintf("%s ($%.0f billion)", r.RichestName, r.RichestNetWorth)
		}
		fmt.Fprintf(out, "#%d  %s  %s  richest: %s  no email: %d  no phone: %d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, richest, r.EmailMissing, r.PhoneMissing)
	}
	return nil
}
