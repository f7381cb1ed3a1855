package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/timmy/capcompare/internal/dataset"
	"github.com/timmy/capcompare/internal/domain"
	"github.com/timmy/capcompare/internal/frame"
	"github.com/timmy/capcompare/internal/logger"
)

// ErrNoUsableRows reports that every input row was filtered out before
// any comparison row could be prepared. The caller keeps the input
// file untouched and moves on to the next file.
var ErrNoUsableRows = errors.New("no usable rows")

// PrepareConfig holds configuration for the prepare service.
type PrepareConfig struct {
	// Seed for the placement coin flips. Negative means time-seeded:
	// placement is still exactly one of A/B per row but not
	// reproducible across runs.
	Seed int64

	// FrameOffset is how many frames back the prev_image URL points.
	FrameOffset int

	// Source overrides Seed with an explicit random source. Used by
	// tests that need to pin placement.
	Source rand.Source
}

// PrepareService converts raw captioning-results tables into
// comparison-ready tables with randomized left/right placement.
type PrepareService struct {
	seed   int64
	source rand.Source
	rng    *rand.Rand // shared stream for time-seeded runs
	offset int
	logger *logger.Logger
}

// NewPrepareService creates a prepare service. For a fixed seed and
// fixed input order its output is bit-for-bit reproducible, and each
// Prepare call starts from the seed again: the same file with the same
// seed yields the same output whether prepared alone or in a batch.
func NewPrepareService(cfg *PrepareConfig, log *logger.Logger) *PrepareService {
	if cfg == nil {
		cfg = &PrepareConfig{Seed: -1, FrameOffset: 1}
	}

	offset := cfg.FrameOffset
	if offset < 1 {
		offset = 1
	}

	s := &PrepareService{
		seed:   cfg.Seed,
		source: cfg.Source,
		offset: offset,
		logger: log,
	}
	if s.source == nil && s.seed < 0 {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// newRNG returns the random stream for one Prepare call. Seeded runs
// get a fresh stream per call so a file's placements never depend on
// how many rows preceded it in the batch; time-seeded runs share one
// stream.
func (s *PrepareService) newRNG() *rand.Rand {
	if s.source != nil {
		return rand.New(s.source)
	}
	if s.seed >= 0 {
		return rand.New(rand.NewSource(s.seed))
	}
	return s.rng
}

func (s *PrepareService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// PrepareStats holds row counts for one prepared file.
type PrepareStats struct {
	InputRows      int
	AfterDedup     int
	AfterPerImage  int
	PreparedRows   int
	SwappedToFront int // rows where the model's caption landed at A
}

// Prepare runs the preparation pipeline over in-memory records:
//
//  1. drop exact duplicates of the (image, original, generated) trio,
//     first-seen order preserved;
//  2. per image, keep only the first record for each original caption;
//  3. drop records missing any of the three fields;
//  4. flip an unbiased coin per survivor to place the model's caption
//     at A or B, recording the position;
//  5. derive the previous-frame URL (empty when underivable).
//
// Output order matches survival order. ErrNoUsableRows is returned
// when nothing survives a stage.
func (s *PrepareService) Prepare(ctx context.Context, records []domain.CaptionRecord) ([]domain.ComparisonRow, *PrepareStats, error) {
	stats := &PrepareStats{InputRows: len(records)}

	// Exact-duplicate removal on the identity trio.
	seen := make(map[[3]string]bool, len(records))
	var unique []domain.CaptionRecord
	for _, rec := range records {
		key := rec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rec)
	}
	stats.AfterDedup = len(unique)
	if len(unique) == 0 {
		return nil, stats, ErrNoUsableRows
	}

	// Per-image uniqueness of the original caption. Guards against
	// re-annotation producing near-duplicate rows for one frame.
	seenOriginals := make(map[string]map[string]bool)
	var filtered []domain.CaptionRecord
	for _, rec := range unique {
		if rec.ImageURL == "" || rec.Original == "" {
			continue
		}
		originals := seenOriginals[rec.ImageURL]
		if originals == nil {
			originals = make(map[string]bool)
			seenOriginals[rec.ImageURL] = originals
		}
		if originals[rec.Original] {
			continue
		}
		originals[rec.Original] = true
		filtered = append(filtered, rec)
	}
	stats.AfterPerImage = len(filtered)
	if len(filtered) == 0 {
		return nil, stats, ErrNoUsableRows
	}

	rng := s.newRNG()
	rows := make([]domain.ComparisonRow, 0, len(filtered))
	for _, rec := range filtered {
		if !rec.Complete() {
			continue
		}

		row := domain.ComparisonRow{
			PrevImage:    frame.PrevURL(rec.ImageURL, s.offset),
			CurrentImage: rec.ImageURL,
		}

		if rng.Intn(2) == 0 {
			row.DescriptionA = rec.Generated
			row.DescriptionB = rec.Original
			row.ModelPosition = domain.PositionA
			stats.SwappedToFront++
		} else {
			row.DescriptionA = rec.Original
			row.DescriptionB = rec.Generated
			row.ModelPosition = domain.PositionB
		}

		rows = append(rows, row)
	}
	stats.PreparedRows = len(rows)
	if len(rows) == 0 {
		return nil, stats, ErrNoUsableRows
	}

	return rows, stats, nil
}

// PrepareFile transforms one raw captioning CSV into a comparison CSV
// in place. When no rows survive, the original file is left untouched
// and ErrNoUsableRows is returned.
func (s *PrepareService) PrepareFile(ctx context.Context, path string) (*PrepareStats, error) {
	records, err := dataset.ReadCaptionRecords(path)
	if err != nil {
		return nil, err
	}

	rows, stats, err := s.Prepare(ctx, records)
	if err != nil {
		return stats, err
	}

	if err := dataset.WriteComparisonRows(path, rows); err != nil {
		return stats, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldPath:         path,
		"input_rows":             stats.InputRows,
		"after_dedup":            stats.AfterDedup,
		"after_unique_per_image": stats.AfterPerImage,
		"prepared_rows":          stats.PreparedRows,
		"model_shown_as_a":       stats.SwappedToFront,
	}).Info("Prepared comparison file in place")

	return stats, nil
}
