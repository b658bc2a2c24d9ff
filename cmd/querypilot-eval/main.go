package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/database"
	"github.com/querypilot/querypilot/internal/eval"
	"github.com/querypilot/querypilot/internal/guard"
	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/report"
	"github.com/querypilot/querypilot/internal/schema"
	s3store "github.com/querypilot/querypilot/internal/storage/s3"
)

func main() {
	suitePath := flag.String("suite", "", "path to a YAML evaluation suite; empty evaluates the configured model only")
	datasetPath := flag.String("dataset", "", "path to a JSON dataset; overrides the suite dataset")
	outputDir := flag.String("output", "", "report output directory; overrides suite and environment settings")
	flag.Parse()

	cfg, err := config.LoadFromEnv("querypilot-eval")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open data source", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	introspector, err := schema.NewDBIntrospector(db, cfg.Database.Driver)
	if err != nil {
		logger.Error("failed to build schema introspector", slog.Any("error", err))
		os.Exit(1)
	}

	clients, order, suite, err := buildClients(cfg, *suitePath)
	if err != nil {
		logger.Error("failed to configure models", slog.Any("error", err))
		os.Exit(1)
	}

	cases, err := loadCases(*datasetPath, suite.Dataset)
	if err != nil {
		logger.Error("failed to load dataset", slog.Any("error", err))
		os.Exit(1)
	}

	runner := &eval.Runner{
		DB:               db,
		Source:           introspector,
		Policy:           guard.NewPolicy(cfg.Pipeline.MaxResultRows),
		MaxRetries:       cfg.Pipeline.MaxRetries,
		EnableGuardrails: cfg.Pipeline.EnableGuardrails,
		MaxRows:          cfg.Pipeline.MaxFetchRows,
		StatementTimeout: cfg.Pipeline.StatementTimeout,
		Weights:          eval.Weights(cfg.Metrics.Weights),
		Logger:           logger,
	}

	logger.Info("starting evaluation run",
		slog.Int("models", len(order)),
		slog.Int("cases", len(cases)))
	result, err := runner.Run(ctx, clients, order, cases)
	if err != nil {
		logger.Error("evaluation run failed", slog.Any("error", err))
		os.Exit(1)
	}

	dir := resolveOutputDir(*outputDir, suite.OutputDir, cfg.Report.OutputDir)
	files, err := report.WriteFiles(dir, result)
	if err != nil {
		logger.Error("failed to write report files", slog.Any("error", err))
		os.Exit(1)
	}
	for _, file := range files {
		fmt.Printf("wrote %s\n", file)
	}

	if cfg.Report.ArchiveEnabled {
		if err := archiveReport(ctx, cfg, logger, result); err != nil {
			logger.Error("failed to archive report", slog.Any("error", err))
			os.Exit(1)
		}
	}

	printComparison(result)
}

// buildClients resolves the set of models under evaluation. With a suite
// file every enabled suite model gets its own client; without one the run
// evaluates the single model from the environment configuration.
func buildClients(cfg config.Config, suitePath string) (map[string]llm.Client, []string, eval.Suite, error) {
	if suitePath == "" {
		client, err := llm.New(llm.Settings{
			Provider:    cfg.LLM.Provider,
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, nil, eval.Suite{}, err
		}
		return map[string]llm.Client{cfg.LLM.Model: client}, []string{cfg.LLM.Model}, eval.Suite{}, nil
	}

	suite, err := eval.LoadSuite(suitePath)
	if err != nil {
		return nil, nil, eval.Suite{}, err
	}

	clients := make(map[string]llm.Client, len(suite.Models))
	order := make([]string, 0, len(suite.Models))
	for _, model := range suite.Models {
		settings := llm.Settings{
			Provider:    model.Provider,
			BaseURL:     model.BaseURL,
			APIKey:      model.APIKey,
			Model:       model.Model,
			Temperature: model.Temp,
			Timeout:     cfg.LLM.Timeout,
		}
		if settings.Provider == "" {
			settings.Provider = cfg.LLM.Provider
		}
		if settings.BaseURL == "" {
			settings.BaseURL = cfg.LLM.BaseURL
		}
		client, err := llm.New(settings)
		if err != nil {
			return nil, nil, eval.Suite{}, fmt.Errorf("model %q: %w", model.Name, err)
		}
		clients[model.Name] = client
		order = append(order, model.Name)
	}
	return clients, order, suite, nil
}

func loadCases(flagPath, suitePath string) ([]eval.TestCase, error) {
	path := flagPath
	if path == "" {
		path = suitePath
	}
	if path == "" {
		return eval.SampleDataset(), nil
	}
	return eval.LoadDataset(path)
}

func resolveOutputDir(flagDir, suiteDir, configDir string) string {
	for _, dir := range []string{flagDir, suiteDir, configDir} {
		if dir != "" {
			return dir
		}
	}
	return "reports"
}

func archiveReport(ctx context.Context, cfg config.Config, logger *slog.Logger, result *eval.RunResult) error {
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}

	archiver := &report.Archiver{Store: store, Logger: logger}
	keys, err := archiver.Archive(ctx, result)
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Printf("archived %s\n", key)
	}
	return nil
}

func printComparison(result *eval.RunResult) {
	fmt.Printf("\nrun %s evaluated %d model(s)\n", result.RunID, len(result.ModelOrder))
	for _, model := range result.ModelOrder {
		summary := result.Summaries[model]
		fmt.Printf("  %-20s composite=%.4f valid=%.1f%% executed=%.1f%%\n",
			summary.Model,
			summary.MeanScores[eval.MetricComposite],
			summary.ValidPct,
			summary.ExecutedPct)
	}
	if best, ok := result.Comparison.BestByMetric[eval.MetricComposite]; ok {
		fmt.Printf("best overall: %s (%.4f)\n", best.Model, best.Score)
	}
}
