// Package dataset owns the CSV mechanics for every tool: reading and
// writing the flat tables the study runs on. Columns are addressed by
// header name, never by position, and all files are UTF-8 with a
// header row.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/timmy/capcompare/internal/domain"
)

// Column names of the raw captioning input.
const (
	ColImageURL             = "image_url"
	ColOriginalDescription  = "original_description"
	ColGeneratedDescription = "generated_description"
)

// Column names of the comparison-ready table and the response export.
const (
	ColPrevImage     = "prev_image"
	ColCurrentImage  = "current_image"
	ColDescriptionA  = "description_a"
	ColDescriptionB  = "description_b"
	ColModelPosition = "model_position"
	ColChoice        = "choice"
)

// MissingColumnsError reports required columns absent from a table's
// header. The file's processing is aborted; other files continue.
type MissingColumnsError struct {
	Path    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s is missing required columns: %s", e.Path, strings.Join(e.Columns, ", "))
}

// Table is a generic header-preserving CSV table. It is used by tools
// that must carry unknown columns through unchanged (backfill,
// repair); the typed readers below are preferred everywhere else.
type Table struct {
	Header []string
	Rows   []map[string]string
}

// ReadTable loads an entire CSV file into memory. Short rows yield
// empty strings for their missing cells; extra cells are dropped, the
// same tolerance the study's spreadsheet exports need.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	t := &Table{Header: records[0]}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(t.Header))
		for i, col := range t.Header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Require checks that every named column exists in the header and
// returns a MissingColumnsError naming the absent ones otherwise.
func (t *Table) Require(path string, columns ...string) error {
	present := make(map[string]bool, len(t.Header))
	for _, col := range t.Header {
		present[col] = true
	}

	var missing []string
	for _, col := range columns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingColumnsError{Path: path, Columns: missing}
	}
	return nil
}

// Get returns a cell trimmed of surrounding whitespace; absent cells
// are empty strings.
func (t *Table) Get(row map[string]string, column string) string {
	return strings.TrimSpace(row[column])
}

// Write writes the table back out with its original header order.
func (t *Table) Write(path string) error {
	return writeAll(path, t.Header, func(w *csv.Writer) error {
		for _, row := range t.Rows {
			rec := make([]string, len(t.Header))
			for i, col := range t.Header {
				rec[i] = row[col]
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeAll opens path for truncating write, emits the header, runs the
// row emitter and flushes.
func writeAll(path string, header []string, emit func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := emit(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ReadCaptionRecords loads a raw captioning-results table. Cells are
// trimmed; rows are returned as-is, deduplication is the preparer's
// concern.
func ReadCaptionRecords(path string) ([]domain.CaptionRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(path, ColImageURL, ColOriginalDescription, ColGeneratedDescription); err != nil {
		return nil, err
	}

	records := make([]domain.CaptionRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, domain.CaptionRecord{
			ImageURL:  t.Get(row, ColImageURL),
			Original:  t.Get(row, ColOriginalDescription),
			Generated: t.Get(row, ColGeneratedDescription),
		})
	}
	return records, nil
}

// comparisonHeader is the column order of prepared comparison files.
var comparisonHeader = []string{
	ColPrevImage,
	ColCurrentImage,
	ColDescriptionA,
	ColDescriptionB,
	ColModelPosition,
}

// WriteComparisonRows writes a prepared comparison table, replacing
// whatever was at path.
func WriteComparisonRows(path string, rows []domain.ComparisonRow) error {
	return writeAll(path, comparisonHeader, func(w *csv.Writer) error {
		for _, row := range rows {
			rec := []string{
				row.PrevImage,
				row.CurrentImage,
				row.DescriptionA,
				row.DescriptionB,
				row.ModelPosition,
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadComparisonRows loads a prepared comparison table. model_position
// may be blank or the column entirely absent in hand-edited files;
// both read back as the empty string and fall under the matcher's
// tie-fallback policy.
func ReadComparisonRows(path string) ([]domain.ComparisonRow, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(path, ColCurrentImage, ColDescriptionA, ColDescriptionB); err != nil {
		return nil, err
	}

	rows := make([]domain.ComparisonRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, domain.ComparisonRow{
			PrevImage:     t.Get(row, ColPrevImage),
			CurrentImage:  t.Get(row, ColCurrentImage),
			DescriptionA:  t.Get(row, ColDescriptionA),
			DescriptionB:  t.Get(row, ColDescriptionB),
			ModelPosition: t.Get(row, ColModelPosition),
		})
	}
	return rows, nil
}

// ReadResponses loads a participant response export. Metadata columns
// are carried through untouched; only the matching key and choice are
// semantically consumed downstream.
func ReadResponses(path string) ([]domain.ResponseRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(path, ColCurrentImage, ColDescriptionA, ColDescriptionB, ColChoice); err != nil {
		return nil, err
	}

	responses := make([]domain.ResponseRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		responses = append(responses, domain.ResponseRecord{
			TsServer:      t.Get(row, "ts_server"),
			ProlificPID:   t.Get(row, "prolific_pid"),
			StudyID:       t.Get(row, "study_id"),
			SessionID:     t.Get(row, "session_id"),
			Index:         t.Get(row, "index"),
			Total:         t.Get(row, "total"),
			PrevImage:     t.Get(row, ColPrevImage),
			CurrentImage:  t.Get(row, ColCurrentImage),
			DescriptionA:  t.Get(row, ColDescriptionA),
			DescriptionB:  t.Get(row, ColDescriptionB),
			ModelPosition: t.Get(row, ColModelPosition),
			Choice:        t.Get(row, ColChoice),
			Confidence:    t.Get(row, "confidence"),
			Comments:      t.Get(row, "comments"),
			UserAgent:     t.Get(row, "ua"),
		})
	}
	return responses, nil
}

// WriteUnmatchedKeys writes the side file listing response keys that
// matched no bound dataset.
func WriteUnmatchedKeys(path string, keys []domain.ResponseKey) error {
	header := []string{ColCurrentImage, ColDescriptionA, ColDescriptionB}
	return writeAll(path, header, func(w *csv.Writer) error {
		for _, k := range keys {
			if err := w.Write([]string{k.CurrentImage, k.DescriptionA, k.DescriptionB}); err != nil {
				return err
			}
		}
		return nil
	})
}
