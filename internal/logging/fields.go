package logging

// Standardized structured-log field keys.
const (
	// FieldComponent identifies the subsystem emitting the record.
	FieldComponent = "component"

	// FieldTrack is the track slot number involved in the operation.
	FieldTrack = "track"

	// FieldBank is the soundboard bank involved in the operation.
	FieldBank = "bank"

	// FieldSampleKey is the soundboard key within a bank.
	FieldSampleKey = "sample_key"

	// FieldJobID is the import job identifier.
	FieldJobID = "job_id"

	// FieldEventType labels notable lifecycle events for log filtering.
	FieldEventType = "event_type"

	// FieldErrorHint carries the suggested next step for a failure.
	FieldErrorHint = "error_hint"

	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)
