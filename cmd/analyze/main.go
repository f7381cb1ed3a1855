package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/timmy/capcompare/internal/config"
	"github.com/timmy/capcompare/internal/dataset"
	"github.com/timmy/capcompare/internal/logger"
	"github.com/timmy/capcompare/internal/service"
)

func main() {
	appLogger := logger.NewFromEnv().WithFields(logger.Fields{
		logger.FieldComponent: "analyze",
		logger.FieldRunID:     uuid.NewString(),
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	responsesPath := flag.String("responses", "", "Path to the response export CSV (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if len(cfg.Datasets) == 0 {
		appLogger.Fatal("No dataset bindings configured")
	}

	respPath := cfg.Analyze.Responses
	if *responsesPath != "" {
		respPath = *responsesPath
	}

	svc := service.NewAnalyzeService(appLogger)
	ctx := appLogger.WithContext(context.Background())

	rowsByDataset := svc.LoadDatasets(ctx, cfg.Datasets)

	responses, err := dataset.ReadResponses(respPath)
	if err != nil {
		// The response file is the one input the analysis cannot run
		// without.
		appLogger.WithField(logger.FieldPath, respPath).WithError(err).Fatal("Failed to load responses")
	}
	appLogger.WithField("responses", len(responses)).Info("Loaded responses")

	result := svc.Analyze(ctx, cfg.Datasets, rowsByDataset, responses)

	models := make([]string, 0, len(result.Stats))
	for model := range result.Stats {
		models = append(models, model)
	}
	sort.Strings(models)

	fmt.Println("\nModel stats (wins vs the other description, based on human choice):")
	for _, model := range models {
		t := result.Stats[model]
		fmt.Printf("\n%s:\n", strings.ToUpper(model))
		fmt.Printf("  rows:   %d\n", t.Rows)
		fmt.Printf("  win:    %d (%.1f%%)\n", t.Win, t.WinPct())
		fmt.Printf("  lose:   %d (%.1f%%)\n", t.Lose, t.LosePct())
		fmt.Printf("  tie:    %d (%.1f%%)\n", t.Tie, t.TiePct())
	}

	if len(result.Unmatched) > 0 {
		appLogger.WithField(logger.FieldCount, len(result.Unmatched)).Warn("Unmatched response rows")
		if cfg.Analyze.UnmatchedReport {
			out := unmatchedPath(respPath)
			if err := dataset.WriteUnmatchedKeys(out, result.Unmatched); err != nil {
				appLogger.WithField(logger.FieldPath, out).WithError(err).Error("Failed to write unmatched keys")
			} else {
				appLogger.WithField(logger.FieldPath, out).Info("Unmatched keys written")
			}
		}
	}

	if len(result.Ambiguous) > 0 {
		appLogger.WithField(logger.FieldCount, len(result.Ambiguous)).Warn("Ambiguous matches (same pair in multiple datasets)")
	}
}

// unmatchedPath places the side file next to the response export:
// responses.csv -> responses_unmatched_keys.csv.
func unmatchedPath(respPath string) string {
	ext := filepath.Ext(respPath)
	stem := strings.TrimSuffix(respPath, ext)
	return stem + "_unmatched_keys" + ext
}
