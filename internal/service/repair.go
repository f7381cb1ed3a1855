package service

import (
	"context"

	"github.com/timmy/capcompare/internal/dataset"
	"github.com/timmy/capcompare/internal/domain"
	"github.com/timmy/capcompare/internal/frame"
	"github.com/timmy/capcompare/internal/logger"
)

// RepairService fixes comparison files whose data landed one column to
// the left of its header: the frame URL in prev_image, description A
// in current_image, description B in description_a. It shifts each row
// back into place and regenerates prev_image from the frame URL.
type RepairService struct {
	offset int
	logger *logger.Logger
}

// NewRepairService creates a repair service.
func NewRepairService(offset int, log *logger.Logger) *RepairService {
	if offset < 1 {
		offset = 1
	}
	return &RepairService{offset: offset, logger: log}
}

func (s *RepairService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// RepairFile rewrites path in place with the columns realigned. Rows
// whose shifted frame-URL cell is empty are dropped, since without a
// URL the row cannot be shown to participants.
func (s *RepairService) RepairFile(ctx context.Context, path string) (int, error) {
	t, err := dataset.ReadTable(path)
	if err != nil {
		return 0, err
	}
	if err := t.Require(path, dataset.ColPrevImage, dataset.ColCurrentImage, dataset.ColDescriptionA); err != nil {
		return 0, err
	}

	var rows []domain.ComparisonRow
	for _, row := range t.Rows {
		current := t.Get(row, dataset.ColPrevImage)
		if current == "" {
			continue
		}
		rows = append(rows, domain.ComparisonRow{
			PrevImage:     frame.PrevURL(current, s.offset),
			CurrentImage:  current,
			DescriptionA:  t.Get(row, dataset.ColCurrentImage),
			DescriptionB:  t.Get(row, dataset.ColDescriptionA),
			ModelPosition: t.Get(row, dataset.ColDescriptionB),
		})
	}

	if err := dataset.WriteComparisonRows(path, rows); err != nil {
		return 0, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldPath: path,
		"rows":           len(rows),
	}).Info("Repaired column alignment in place")

	return len(rows), nil
}
