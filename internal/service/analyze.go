package service

import (
	"context"
	"os"

	"github.com/timmy/capcompare/internal/dataset"
	"github.com/timmy/capcompare/internal/domain"
	"github.com/timmy/capcompare/internal/logger"
)

// AnalyzeService re-matches participant responses to the comparison
// rows they were answered against and tallies win/lose/tie outcomes
// per model.
type AnalyzeService struct {
	logger *logger.Logger
}

// NewAnalyzeService creates an analyze service.
func NewAnalyzeService(log *logger.Logger) *AnalyzeService {
	return &AnalyzeService{logger: log}
}

func (s *AnalyzeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// AnalyzeResult is the outcome of one analysis run. Stats always
// contains an entry for every bound model, even when zero responses
// matched it.
type AnalyzeResult struct {
	Stats     map[string]*domain.OutcomeTally
	Unmatched []domain.ResponseKey
	Ambiguous []domain.AmbiguousMatch

	TotalResponses int
	LookupRows     int
}

// LoadDatasets reads the comparison file of every binding. A missing
// or unreadable file is logged and skipped; the run continues with the
// remaining datasets.
func (s *AnalyzeService) LoadDatasets(ctx context.Context, bindings []domain.DatasetBinding) map[string][]domain.ComparisonRow {
	rowsByDataset := make(map[string][]domain.ComparisonRow, len(bindings))
	for _, b := range bindings {
		rows, err := dataset.ReadComparisonRows(b.Path)
		if err != nil {
			if os.IsNotExist(err) {
				s.log(ctx).WithFields(logger.Fields{
					logger.FieldDataset: b.Key,
					logger.FieldPath:    b.Path,
				}).Warn("Comparison file missing, skipping dataset")
			} else {
				s.log(ctx).WithFields(logger.Fields{
					logger.FieldDataset: b.Key,
					logger.FieldPath:    b.Path,
				}).WithError(err).Warn("Failed to load comparison file, skipping dataset")
			}
			continue
		}
		rowsByDataset[b.Key] = rows
	}
	return rowsByDataset
}

// buildLookup maps every response key to its (dataset, model position)
// entries, scanning datasets in declared binding order so that
// first-declared wins on ambiguity. Rows with an incomplete key are
// skipped.
func buildLookup(bindings []domain.DatasetBinding, rowsByDataset map[string][]domain.ComparisonRow) map[domain.ResponseKey][]domain.PositionedMatch {
	lookup := make(map[domain.ResponseKey][]domain.PositionedMatch)
	for _, b := range bindings {
		for _, row := range rowsByDataset[b.Key] {
			if row.CurrentImage == "" || row.DescriptionA == "" || row.DescriptionB == "" {
				continue
			}
			key := domain.ResponseKey{
				CurrentImage: row.CurrentImage,
				DescriptionA: row.DescriptionA,
				DescriptionB: row.DescriptionB,
			}
			lookup[key] = append(lookup[key], domain.PositionedMatch{
				DatasetKey:    b.Key,
				ModelPosition: row.ModelPosition,
			})
		}
	}
	return lookup
}

// Analyze matches every response against the bound datasets and
// aggregates outcomes per model.
//
// Classification per matched response: "Neither" is a tie; a choice of
// exactly "A" or "B" against a recorded model position of exactly "A"
// or "B" is a win when they agree and a loss otherwise; any other
// combination is scored as a tie rather than discarded. Unmatched
// responses are recorded and excluded from the tallies.
func (s *AnalyzeService) Analyze(ctx context.Context, bindings []domain.DatasetBinding, rowsByDataset map[string][]domain.ComparisonRow, responses []domain.ResponseRecord) *AnalyzeResult {
	lookup := buildLookup(bindings, rowsByDataset)

	result := &AnalyzeResult{
		Stats:          make(map[string]*domain.OutcomeTally),
		TotalResponses: len(responses),
	}
	for _, entries := range lookup {
		result.LookupRows += len(entries)
	}

	modelByDataset := make(map[string]string, len(bindings))
	for _, b := range bindings {
		modelByDataset[b.Key] = b.Model
		if _, ok := result.Stats[b.Model]; !ok {
			result.Stats[b.Model] = &domain.OutcomeTally{}
		}
	}

	s.log(ctx).WithFields(logger.Fields{
		"lookup_rows": result.LookupRows,
		"responses":   len(responses),
	}).Info("Matching responses against comparison rows")

	for _, resp := range responses {
		key := resp.Key()

		matches := lookup[key]
		if len(matches) == 0 {
			result.Unmatched = append(result.Unmatched, key)
			continue
		}

		if len(matches) > 1 {
			// Same pair in multiple datasets; first-declared wins.
			result.Ambiguous = append(result.Ambiguous, domain.AmbiguousMatch{
				Key:     key,
				Matches: matches,
			})
		}

		match := matches[0]
		model, ok := modelByDataset[match.DatasetKey]
		if !ok {
			continue
		}

		tally := result.Stats[model]
		tally.Rows++

		switch {
		case resp.Choice == domain.ChoiceNeither:
			tally.Tie++
		case isPosition(resp.Choice) && isPosition(match.ModelPosition):
			if resp.Choice == match.ModelPosition {
				tally.Win++
			} else {
				tally.Lose++
			}
		default:
			// Missing or malformed choice/model_position: score as
			// non-decisive rather than dropping the response.
			tally.Tie++
		}
	}

	return result
}

func isPosition(v string) bool {
	return v == domain.PositionA || v == domain.PositionB
}
