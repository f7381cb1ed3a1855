package service

import (
	"context"

	"github.com/timmy/capcompare/internal/dataset"
	"github.com/timmy/capcompare/internal/frame"
	"github.com/timmy/capcompare/internal/logger"
)

// BackfillService fills empty prev_image cells of already-prepared
// comparison files by deriving them from current_image. Cells that
// already hold a value are never touched.
type BackfillService struct {
	offset int
	logger *logger.Logger
}

// NewBackfillService creates a backfill service deriving URLs offset
// frames back.
func NewBackfillService(offset int, log *logger.Logger) *BackfillService {
	if offset < 1 {
		offset = 1
	}
	return &BackfillService{offset: offset, logger: log}
}

func (s *BackfillService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// BackfillFile rewrites path in place with derived prev_image values.
// Returns the number of cells filled; zero means the file was left
// untouched. All columns, known or not, are carried through unchanged.
func (s *BackfillService) BackfillFile(ctx context.Context, path string) (int, error) {
	t, err := dataset.ReadTable(path)
	if err != nil {
		return 0, err
	}
	if err := t.Require(path, dataset.ColCurrentImage, dataset.ColPrevImage); err != nil {
		return 0, err
	}

	updated := 0
	for _, row := range t.Rows {
		current := t.Get(row, dataset.ColCurrentImage)
		if current == "" || t.Get(row, dataset.ColPrevImage) != "" {
			continue
		}
		prev := frame.PrevURL(current, s.offset)
		row[dataset.ColPrevImage] = prev
		if prev != "" {
			updated++
		}
	}

	if updated == 0 {
		return 0, nil
	}

	if err := t.Write(path); err != nil {
		return 0, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldPath: path,
		"filled":         updated,
	}).Info("Backfilled prev_image URLs in place")

	return updated, nil
}
