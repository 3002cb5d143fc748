package ir

// Version constants recorded with every stored run and emitted unit.
const (
	// IRVersion is the bound document format version.
	IRVersion = "1"

	// EngineVersion is the logicflow engine version.
	EngineVersion = "0.1.0"
)
