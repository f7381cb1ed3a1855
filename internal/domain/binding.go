package domain

// DatasetBinding is the static association between one comparison
// dataset (a prepared CSV shown to participants) and the model that
// authored its generated captions. Bindings come from configuration,
// never from runtime discovery, and their declared order matters: the
// first-declared binding wins when a key is ambiguous.
type DatasetBinding struct {
	Key   string `mapstructure:"key"`
	Model string `mapstructure:"model"`
	Path  string `mapstructure:"path"`
}

// PositionedMatch is one comparison row's entry in the analyze lookup:
// which dataset it came from and where the model's text sat.
type PositionedMatch struct {
	DatasetKey    string
	ModelPosition string
}

// AmbiguousMatch records a response key that resolved to more than one
// bound dataset. The first entry in Matches is the one used for
// tallying.
type AmbiguousMatch struct {
	Key     ResponseKey
	Matches []PositionedMatch
}
