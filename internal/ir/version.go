package ir

// Tool identity written into every report.
const (
	// ToolName is the driver name reported in Tool.Name.
	ToolName = "skim"

	// ToolVersion is the engine version.
	ToolVersion = "0.1.0"

	// SchemaVersion is the report document version.
	SchemaVersion = "1"
)
