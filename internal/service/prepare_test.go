package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"

	"github.com/timmy/capcompare/internal/dataset"
	"github.com/timmy/capcompare/internal/domain"
)

// fixedSource is a rand.Source whose Int63 always returns the same
// value, pinning Intn(2) to a known side: 0 places the model's caption
// at A, 1<<32 places it at B.
type fixedSource struct{ v int64 }

func (s fixedSource) Int63() int64 { return s.v }
func (s fixedSource) Seed(int64)   {}

const (
	forceModelA int64 = 0
	forceModelB int64 = 1 << 32
)

func newTestPreparer(t *testing.T, source int64) *PrepareService {
	t.Helper()
	return NewPrepareService(&PrepareConfig{
		FrameOffset: 1,
		Source:      fixedSource{v: source},
	}, nil)
}

func TestPrepareEndToEnd(t *testing.T) {
	records := []domain.CaptionRecord{
		{
			ImageURL:  "https://cdn.example.com/frames/000010.jpg",
			Original:  "a dog",
			Generated: "a robot dog",
		},
	}

	svc := newTestPreparer(t, forceModelB)
	rows, stats, err := svc.Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	want := domain.ComparisonRow{
		PrevImage:     "https://cdn.example.com/frames/000009.jpg",
		CurrentImage:  "https://cdn.example.com/frames/000010.jpg",
		DescriptionA:  "a dog",
		DescriptionB:  "a robot dog",
		ModelPosition: domain.PositionB,
	}
	if rows[0] != want {
		t.Errorf("row mismatch:\n got  %+v\n want %+v", rows[0], want)
	}
	if stats.PreparedRows != 1 {
		t.Errorf("PreparedRows = %d, want 1", stats.PreparedRows)
	}
}

func TestPrepareForcedPlacementA(t *testing.T) {
	records := []domain.CaptionRecord{
		{ImageURL: "https://host/f/000005.jpg", Original: "orig", Generated: "gen"},
	}

	svc := newTestPreparer(t, forceModelA)
	rows, _, err := svc.Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if rows[0].ModelPosition != domain.PositionA {
		t.Fatalf("ModelPosition = %q, want A", rows[0].ModelPosition)
	}
	if rows[0].DescriptionA != "gen" || rows[0].DescriptionB != "orig" {
		t.Errorf("descriptions misplaced: %+v", rows[0])
	}
}

// TestPreparePlacementInvariant verifies that for real seeded
// randomness every output row holds the generated caption on exactly
// the side model_position names.
func TestPreparePlacementInvariant(t *testing.T) {
	var records []domain.CaptionRecord
	for i := 1; i <= 20; i++ {
		records = append(records, domain.CaptionRecord{
			ImageURL:  "https://host/f/" + pad6(i) + ".jpg",
			Original:  "original " + pad6(i),
			Generated: "generated " + pad6(i),
		})
	}

	svc := NewPrepareService(&PrepareConfig{Seed: 42, FrameOffset: 1}, nil)
	rows, _, err := svc.Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}

	for i, row := range rows {
		gen := records[i].Generated
		orig := records[i].Original
		switch row.ModelPosition {
		case domain.PositionA:
			if row.DescriptionA != gen || row.DescriptionB != orig {
				t.Errorf("row %d: model_position=A but descriptions are %+v", i, row)
			}
		case domain.PositionB:
			if row.DescriptionA != orig || row.DescriptionB != gen {
				t.Errorf("row %d: model_position=B but descriptions are %+v", i, row)
			}
		default:
			t.Errorf("row %d: model_position = %q, want A or B", i, row.ModelPosition)
		}
	}
}

func TestPrepareSeededReproducibility(t *testing.T) {
	var records []domain.CaptionRecord
	for i := 1; i <= 10; i++ {
		records = append(records, domain.CaptionRecord{
			ImageURL:  "https://host/f/" + pad6(i) + ".jpg",
			Original:  "orig",
			Generated: "gen",
		})
	}

	first, _, err := NewPrepareService(&PrepareConfig{Seed: 123}, nil).Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, _, err := NewPrepareService(&PrepareConfig{Seed: 123}, nil).Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed produced different output:\n%+v\nvs\n%+v", first, second)
	}
}

// TestPrepareSeededBatchPerFilePlacement verifies that a seeded run
// restarts the random stream for every file: identical inputs prepared
// by one service in the same batch come out identical, regardless of
// how many rows were processed before them.
func TestPrepareSeededBatchPerFilePlacement(t *testing.T) {
	content := "image_url,original_description,generated_description\n"
	for i := 1; i <= 4; i++ {
		content += fmt.Sprintf("https://host/f/%s.jpg,original %d,generated %d\n", pad6(i), i, i)
	}
	first := writeCSV(t, "a.csv", content)
	second := writeCSV(t, "b.csv", content)

	svc := NewPrepareService(&PrepareConfig{Seed: 42, FrameOffset: 1}, nil)
	ctx := context.Background()
	if _, err := svc.PrepareFile(ctx, first); err != nil {
		t.Fatalf("first file: %v", err)
	}
	if _, err := svc.PrepareFile(ctx, second); err != nil {
		t.Fatalf("second file: %v", err)
	}

	rowsA, err := dataset.ReadComparisonRows(first)
	if err != nil {
		t.Fatal(err)
	}
	rowsB, err := dataset.ReadComparisonRows(second)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rowsA, rowsB) {
		t.Errorf("identical seeded inputs diverged within one batch:\n%+v\nvs\n%+v", rowsA, rowsB)
	}

	// A fresh service with the same seed agrees with the batch result.
	third := writeCSV(t, "c.csv", content)
	if _, err := NewPrepareService(&PrepareConfig{Seed: 42, FrameOffset: 1}, nil).PrepareFile(ctx, third); err != nil {
		t.Fatalf("third file: %v", err)
	}
	rowsC, err := dataset.ReadComparisonRows(third)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rowsA, rowsC) {
		t.Errorf("batch output differs from single-file output for the same seed:\n%+v\nvs\n%+v", rowsA, rowsC)
	}
}

func TestPrepareExactDuplicateRemoval(t *testing.T) {
	rec := domain.CaptionRecord{
		ImageURL:  "https://host/f/000010.jpg",
		Original:  "a dog",
		Generated: "a robot dog",
	}
	records := []domain.CaptionRecord{rec, rec, rec}

	svc := newTestPreparer(t, forceModelA)
	rows, stats, err := svc.Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if stats.AfterDedup != 1 || len(rows) != 1 {
		t.Errorf("expected 1 surviving row, got after_dedup=%d prepared=%d", stats.AfterDedup, len(rows))
	}
}

func TestPreparePerImageUniqueOriginal(t *testing.T) {
	records := []domain.CaptionRecord{
		{ImageURL: "https://host/f/000010.jpg", Original: "a dog", Generated: "first generated"},
		{ImageURL: "https://host/f/000010.jpg", Original: "a dog", Generated: "second generated"},
		{ImageURL: "https://host/f/000011.jpg", Original: "a dog", Generated: "other image keeps its row"},
	}

	svc := newTestPreparer(t, forceModelA)
	rows, _, err := svc.Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// First record wins for the shared image.
	if rows[0].DescriptionA != "first generated" {
		t.Errorf("first-seen record did not survive: %+v", rows[0])
	}
}

func TestPrepareCompletenessFilter(t *testing.T) {
	records := []domain.CaptionRecord{
		{ImageURL: "https://host/f/000010.jpg", Original: "orig", Generated: ""},
		{ImageURL: "", Original: "orig", Generated: "gen"},
		{ImageURL: "https://host/f/000011.jpg", Original: "", Generated: "gen"},
		{ImageURL: "https://host/f/000012.jpg", Original: "orig", Generated: "gen"},
	}

	svc := newTestPreparer(t, forceModelA)
	rows, _, err := svc.Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 complete row to survive, got %d", len(rows))
	}
	if rows[0].CurrentImage != "https://host/f/000012.jpg" {
		t.Errorf("wrong survivor: %+v", rows[0])
	}
}

func TestPrepareNoUsableRows(t *testing.T) {
	testCases := []struct {
		name    string
		records []domain.CaptionRecord
	}{
		{name: "empty input", records: nil},
		{
			name: "all incomplete",
			records: []domain.CaptionRecord{
				{ImageURL: "https://host/f/000010.jpg"},
				{Original: "orig", Generated: "gen"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestPreparer(t, forceModelA)
			_, _, err := svc.Prepare(context.Background(), tc.records)
			if !errors.Is(err, ErrNoUsableRows) {
				t.Errorf("err = %v, want ErrNoUsableRows", err)
			}
		})
	}
}

func TestPrepareUnderivablePrevFrame(t *testing.T) {
	records := []domain.CaptionRecord{
		{ImageURL: "https://host/f/000000.jpg", Original: "orig", Generated: "gen"},
		{ImageURL: "https://host/f/not_a_frame.jpg", Original: "orig2", Generated: "gen2"},
	}

	svc := newTestPreparer(t, forceModelA)
	rows, _, err := svc.Prepare(context.Background(), records)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	for i, row := range rows {
		if row.PrevImage != "" {
			t.Errorf("row %d: PrevImage = %q, want empty", i, row.PrevImage)
		}
	}
}

func pad6(i int) string {
	return fmt.Sprintf("%06d", i)
}

func TestPrepareFileInPlace(t *testing.T) {
	path := writeCSV(t, "comparison_input.csv",
		"image_url,original_description,generated_description\n"+
			"https://host/f/000010.jpg,a dog,a robot dog\n"+
			"https://host/f/000010.jpg,a dog,a robot dog\n")

	svc := newTestPreparer(t, forceModelB)
	stats, err := svc.PrepareFile(context.Background(), path)
	if err != nil {
		t.Fatalf("PrepareFile: %v", err)
	}
	if stats.InputRows != 2 || stats.PreparedRows != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rows, err := dataset.ReadComparisonRows(path)
	if err != nil {
		t.Fatalf("file not rewritten as comparison table: %v", err)
	}
	if len(rows) != 1 || rows[0].ModelPosition != domain.PositionB {
		t.Errorf("rewritten rows = %+v", rows)
	}
}

func TestPrepareFileNoUsableRowsPreservesFile(t *testing.T) {
	content := "image_url,original_description,generated_description\n" +
		",,\n"
	path := writeCSV(t, "comparison_input.csv", content)

	svc := newTestPreparer(t, forceModelA)
	_, err := svc.PrepareFile(context.Background(), path)
	if !errors.Is(err, ErrNoUsableRows) {
		t.Fatalf("err = %v, want ErrNoUsableRows", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != content {
		t.Errorf("input file was modified despite no usable rows:\n%s", raw)
	}
}

func TestPrepareFileMissingColumns(t *testing.T) {
	path := writeCSV(t, "comparison_input.csv", "image_url,text\nhttps://host/f/000010.jpg,a dog\n")

	svc := newTestPreparer(t, forceModelA)
	_, err := svc.PrepareFile(context.Background(), path)
	var missing *dataset.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingColumnsError", err)
	}
}
