package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/timmy/capcompare/internal/config"
	"github.com/timmy/capcompare/internal/dataset"
	"github.com/timmy/capcompare/internal/logger"
	"github.com/timmy/capcompare/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.NewFromEnv().WithFields(logger.Fields{
		logger.FieldComponent: "prepare",
		logger.FieldRunID:     uuid.NewString(),
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	seed := flag.Int64("seed", -2, "Random seed for A/B placement (overrides config; <0 = time-seeded)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: prepare [flags] <csv_path_or_glob> ...")
		fmt.Fprintln(os.Stderr, "\nTransforms raw captioning CSVs into comparison-ready CSVs in place.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	prepareCfg := &service.PrepareConfig{
		Seed:        cfg.Prepare.Seed,
		FrameOffset: cfg.Prepare.FrameOffset,
	}
	if *seed != -2 {
		prepareCfg.Seed = *seed
	}
	if prepareCfg.Seed >= 0 {
		appLogger.WithField("seed", prepareCfg.Seed).Info("Using fixed random seed")
	}

	paths := dataset.ExpandPatterns(flag.Args())
	appLogger.WithField(logger.FieldCount, len(paths)).Info("Preparing comparison files")

	svc := service.NewPrepareService(prepareCfg, appLogger)
	ctx := appLogger.WithContext(context.Background())

	ok := 0
	for _, path := range paths {
		fileLog := appLogger.WithField(logger.FieldPath, path)
		stats, err := svc.PrepareFile(ctx, path)
		switch {
		case err == nil:
			ok++
		case os.IsNotExist(err):
			fileLog.Warn("File not found, skipping")
		case errors.Is(err, service.ErrNoUsableRows):
			fileLog.WithField("input_rows", stats.InputRows).Warn("No usable rows, file left untouched")
		default:
			fileLog.WithError(err).Error("Failed to prepare file")
		}
	}

	appLogger.WithFields(logger.Fields{
		"prepared": ok,
		"total":    len(paths),
	}).Info("Preparation completed")

	if ok == 0 {
		os.Exit(1)
	}
}
