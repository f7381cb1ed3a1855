package main

import (
	"context"
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
	appLogger := logger.NewFromEnv().WithFields(logger.Fields{
		logger.FieldComponent: "backfill",
		logger.FieldRunID:     uuid.NewString(),
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: backfill [flags] <csv_path_or_glob> ...")
		fmt.Fprintln(os.Stderr, "\nFills empty prev_image cells of prepared comparison CSVs in place.")
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

	paths := dataset.ExpandPatterns(flag.Args())
	appLogger.WithField(logger.FieldCount, len(paths)).Info("Backfilling prev_image URLs")

	svc := service.NewBackfillService(cfg.Prepare.FrameOffset, appLogger)
	ctx := appLogger.WithContext(context.Background())

	ok := 0
	for _, path := range paths {
		fileLog := appLogger.WithField(logger.FieldPath, path)
		updated, err := svc.BackfillFile(ctx, path)
		switch {
		case os.IsNotExist(err):
			fileLog.Warn("File not found, skipping")
		case err != nil:
			fileLog.WithError(err).Error("Failed to backfill file")
		case updated == 0:
			fileLog.Warn("No rows needed updating")
		default:
			ok++
		}
	}

	appLogger.WithFields(logger.Fields{
		"updated": ok,
		"total":   len(paths),
	}).Info("Backfill completed")
}
