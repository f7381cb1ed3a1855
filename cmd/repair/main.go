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
		logger.FieldComponent: "repair",
		logger.FieldRunID:     uuid.NewString(),
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: repair [flags] <csv_path_or_glob> ...")
		fmt.Fprintln(os.Stderr, "\nRealigns column-shifted comparison CSVs in place and regenerates prev_image.")
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

	svc := service.NewRepairService(cfg.Prepare.FrameOffset, appLogger)
	ctx := appLogger.WithContext(context.Background())

	ok := 0
	for _, path := range paths {
		fileLog := appLogger.WithField(logger.FieldPath, path)
		rows, err := svc.RepairFile(ctx, path)
		switch {
		case os.IsNotExist(err):
			fileLog.Warn("File not found, skipping")
		case err != nil:
			fileLog.WithError(err).Error("Failed to repair file")
		default:
			fileLog.WithField("rows", rows).Info("File repaired")
			ok++
		}
	}

	appLogger.WithFields(logger.Fields{
		"repaired": ok,
		"total":    len(paths),
	}).Info("Repair completed")
}
