package ir

// Version constants for model schema and engine.
const (
	// SchemaVersion is the ModelSpec/Snapshot schema version.
	SchemaVersion = "1"

	// EngineVersion is the plexsim engine version.
	EngineVersion = "0.1.0"
)
