package ir

// Version constants for the justification format and engine.
const (
	// IRVersion is the justification/triple schema version.
	IRVersion = "1"

	// EngineVersion is the entail engine version.
	EngineVersion = "0.1.0"
)
