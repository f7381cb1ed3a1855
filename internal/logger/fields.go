package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRunID is the per-invocation run ID (UUID).
	FieldRunID = "run_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"

	// FieldDataset is the comparison dataset key.
	FieldDataset = "dataset"

	// FieldModel is the model name a dataset is bound to.
	FieldModel = "model"

	// FieldPath is the path of the file being processed. Named "path"
	// because logrus's caller reporting already emits a "file" key.
	FieldPath = "path"
)

// Standard metric fields used for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field.
	FieldCount = "count"
)
