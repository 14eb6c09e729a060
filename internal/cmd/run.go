package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/listlens/internal/config"
	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/core/checker"
	"github.com/namelens/listlens/internal/core/engine"
	"github.com/namelens/listlens/internal/core/sink"
	"github.com/namelens/listlens/internal/core/store"
	apperrors "github.com/namelens/listlens/internal/errors"
	"github.com/namelens/listlens/internal/input"
	"github.com/namelens/listlens/internal/metrics"
	"github.com/namelens/listlens/internal/observability"
	"github.com/namelens/listlens/internal/output"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check every list against the tracked properties",
	Long: `Read the lists CSV (Name, ListId) and the properties file, look up each list's
filters through the HubSpot lists API and write the results CSV.

Failed lookups are appended to the error log; the run continues past them.`,
	Args: cobra.NoArgs,
	RunE: runLists,
}

var runFlagKeys = map[string]string{
	"lists":       "files.lists",
	"properties":  "files.properties",
	"results":     "files.results",
	"error-log":   "files.error_log",
	"log-success": "files.log_success",
	"concurrency": "workers",
	"rate-limit":  "rate_limit.requests",
	"rate-window": "rate_limit.window",
	"timeout":     "hubspot.timeout",
	"store":       "store.enabled",
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.String("lists", "lists_to_check.csv", "CSV of lists to check (columns Name, ListId)")
	flags.String("properties", "properties_to_check.txt", "File of property names, one per line")
	flags.String("results", "checked_lists.csv", "Results CSV (overwritten each run)")
	flags.String("error-log", "log_file.csv", "Error log CSV (appended)")
	flags.Bool("log-success", false, "Also append successful lookups to the error log")
	flags.Int("concurrency", engine.DefaultConcurrency, "Concurrent list checks")
	flags.Int("rate-limit", engine.DefaultRequestsPerWindow, "Requests allowed per rate window")
	flags.Duration("rate-window", engine.DefaultWindowDuration, "Rate limit window")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Bool("store", false, "Record the run in the history database")
	flags.String("output", "table", "Summary format: table, json, markdown, yaml")

	for flag, key := range runFlagKeys {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runLists(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return apperrors.WrapInvalidInput(err, "invalid --output")
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	summary, err := executeRun(cmd.Context(), cfg, nil)
	if summary != nil {
		rendered, renderErr := output.NewFormatter(format).FormatSummary(summary)
		if renderErr != nil && err == nil {
			err = renderErr
		}
		writeLine(cmd.OutOrStdout(), rendered)
	}
	return err
}

// runDeps lets tests swap the HTTP client.
type runDeps struct {
	Client *http.Client
}

// executeRun performs a full run. The summary is returned whenever the run
// started, even if it then failed.
func executeRun(ctx context.Context, cfg *config.Config, deps *runDeps) (*output.RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.CLILogger

	if err := cfg.ValidateRun(); err != nil {
		return nil, err
	}

	targets, rowWarnings, err := input.ReadTargets(cfg.Files.Lists)
	if err != nil {
		return nil, err
	}
	for _, warning := range rowWarnings {
		logger.Warn("List row will be recorded as an error", zap.Int("line", warning.Line), zap.String("reason", warning.Reason))
	}

	properties, err := input.ReadProperties(cfg.Files.Properties)
	if err != nil {
		return nil, err
	}

	limiter, err := engine.NewRateLimiter(engine.RateLimit{
		RequestsPerWindow: cfg.RateLimit.Requests,
		WindowDuration:    cfg.RateLimit.Window,
		PollInterval:      cfg.RateLimit.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	limiter.OnWait = metrics.RecordRateLimitWait

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
			logger.Warn("Metrics exporter unavailable", zap.Error(err))
		} else {
			logger.Info("Metrics exporter started", zap.Int("port", observability.GetMetricsPort()))
			defer observability.ShutdownMetrics()
		}
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	csvSink, err := sink.OpenCSV(sink.CSVOptions{
		ResultsPath:  cfg.Files.Results,
		ErrorLogPath: cfg.Files.ErrorLog,
		Properties:   properties,
		LogSuccess:   cfg.Files.LogSuccess,
	})
	if err != nil {
		return nil, fmt.Errorf("open output files: %w", err)
	}
	sinks := sink.Multi{csvSink}

	var history *store.Store
	if cfg.Store.Enabled {
		history, err = store.Open(ctx, cfg.Store)
		if err != nil {
			_ = sinks.Close()
			return nil, apperrors.WrapDatabaseError(err, "failed to open run history")
		}
		if err := history.BeginRun(ctx, runID, startedAt, properties.Names()); err != nil {
			_ = sinks.Close()
			_ = history.Close()
			return nil, apperrors.WrapDatabaseError(err, "failed to record run")
		}
		sinks = append(sinks, history)
	}

	client := &http.Client{}
	if deps != nil && deps.Client != nil {
		client = deps.Client
	}

	lookup := &checker.HubSpotListChecker{
		Client:      client,
		Limiter:     limiter,
		Properties:  properties,
		BaseURL:     cfg.HubSpot.BaseURL,
		Token:       cfg.HubSpot.BearerToken,
		Timeout:     cfg.HubSpot.Timeout,
		MaxDepth:    cfg.HubSpot.MaxFilterDepth,
		RunID:       runID,
		ToolVersion: versionInfo.Version,
	}

	var (
		failuresMu sync.Mutex
		failures   []*core.CheckResult
	)
	dispatcher := &engine.Dispatcher{
		Checker:     lookup,
		Sink:        sinks,
		Concurrency: cfg.Workers,
		OnResult: func(result *core.CheckResult, elapsed time.Duration) {
			metrics.RecordListCheck(result.Status, result.ErrorKind, elapsed)
			if result.IsError() {
				failuresMu.Lock()
				failures = append(failures, result)
				failuresMu.Unlock()
				logger.Warn("List check failed",
					zap.String("list_id", result.Target.ListID),
					zap.String("list_name", result.Target.Name),
					zap.Int("status_code", result.StatusCode),
					zap.String("error_kind", result.ErrorKind),
					zap.String("message", result.Message),
				)
				return
			}
			logger.Debug("List checked",
				zap.String("list_id", result.Target.ListID),
				zap.String("status", string(result.Status)),
				zap.Strings("matched", result.Matched),
				zap.Duration("elapsed", elapsed),
				zap.Int("limiter_in_flight", limiter.InFlight()),
			)
		},
	}

	logger.Info("Starting run",
		zap.String("run_id", runID),
		zap.Int("lists", len(targets)),
		zap.Int("properties", properties.Len()),
		zap.Int("workers", cfg.Workers),
	)

	stats, runErr := dispatcher.Run(ctx, targets)

	if history != nil {
		totals := store.RunTotals{Total: stats.Total, Found: stats.Found, NoMatch: stats.NoMatch, Errors: stats.Errors}
		if err := history.FinishRun(context.WithoutCancel(ctx), runID, totals, time.Now().UTC()); err != nil && runErr == nil {
			runErr = apperrors.WrapDatabaseError(err, "failed to finish run")
		}
	}
	if err := sinks.Close(); err != nil && runErr == nil {
		runErr = err
	}

	metrics.RecordRun(runErr == nil, stats.Elapsed)
	logThroughput(stats.Total, startedAt)

	core.SortResults(failures)
	summary := &output.RunSummary{
		RunID:        runID,
		StartedAt:    startedAt,
		Elapsed:      stats.Elapsed,
		Total:        stats.Total,
		Found:        stats.Found,
		NoMatch:      stats.NoMatch,
		Errors:       stats.Errors,
		RowWarnings:  len(rowWarnings),
		LimiterWaits: limiter.Stats().Waits,
		Properties:   properties.Names(),
		ResultsPath:  cfg.Files.Results,
		ErrorLogPath: cfg.Files.ErrorLog,
		Failures:     failures,
	}
	return summary, runErr
}

func logThroughput(count int, startedAt time.Time) {
	if count <= 0 {
		return
	}
	elapsed := time.Since(startedAt)
	if elapsed <= 0 {
		return
	}
	rate := float64(count) / elapsed.Seconds()
	observability.CLILogger.Info(
		"Check throughput",
		zap.Int("lists", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rate_per_sec", rate),
	)
}

func writeLine(w io.Writer, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	_, _ = fmt.Fprintln(w, value)
}
