package domain

// Position identifies which of the two displayed description slots
// holds the machine-generated text for a comparison row.
const (
	PositionA = "A"
	PositionB = "B"
)

// ChoiceNeither is the explicit "no preference" answer participants
// can give instead of picking a side.
const ChoiceNeither = "Neither"

// CaptionRecord is one raw captioning-result row: an image plus its
// human-written and machine-generated descriptions. Identity for
// deduplication is the full (ImageURL, Original, Generated) trio.
type CaptionRecord struct {
	ImageURL  string
	Original  string
	Generated string
}

// Key returns the deduplication identity of the record.
func (r CaptionRecord) Key() [3]string {
	return [3]string{r.ImageURL, r.Original, r.Generated}
}

// Complete reports whether all three fields are present.
func (r CaptionRecord) Complete() bool {
	return r.ImageURL != "" && r.Original != "" && r.Generated != ""
}

// ComparisonRow is the participant-facing unit: two descriptions in
// randomized positions plus the frame pair they describe. Exactly one
// of DescriptionA/DescriptionB is the model's generated caption and
// ModelPosition records which.
type ComparisonRow struct {
	PrevImage     string
	CurrentImage  string
	DescriptionA  string
	DescriptionB  string
	ModelPosition string
}

// ResponseRecord is one participant answer exported from the study UI.
// Only CurrentImage, DescriptionA, DescriptionB and Choice carry
// matching semantics; everything else is opaque passthrough metadata.
// Absent or blank cells are empty strings, never errors.
type ResponseRecord struct {
	TsServer      string
	ProlificPID   string
	StudyID       string
	SessionID     string
	Index         string
	Total         string
	PrevImage     string
	CurrentImage  string
	DescriptionA  string
	DescriptionB  string
	ModelPosition string
	Choice        string
	Confidence    string
	Comments      string
	UserAgent     string
}

// Key returns the lookup key used to re-match this response to the
// comparison row it was answered against. Order-sensitive: a response
// with A/B swapped relative to the prepared row does not match.
func (r ResponseRecord) Key() ResponseKey {
	return ResponseKey{
		CurrentImage: r.CurrentImage,
		DescriptionA: r.DescriptionA,
		DescriptionB: r.DescriptionB,
	}
}

// ResponseKey is the (current image, description A, description B)
// triple that ties responses back to prepared comparison rows.
type ResponseKey struct {
	CurrentImage string
	DescriptionA string
	DescriptionB string
}
