package ir

import "time"

// Message is a user-facing text with an optional message-string ID and
// positional arguments.
type Message struct {
	Text      string   `json:"text,omitempty"`
	ID        string   `json:"id,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
}

// NewMessage returns a plain text message.
func NewMessage(text string) Message {
	return Message{Text: text}
}

// ArtifactLocation names an artifact by URI. Index is the position in the
// report's artifact list when known.
type ArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

// ArtifactContent holds literal text taken from an artifact.
type ArtifactContent struct {
	Text string `json:"text,omitempty"`
}

// Region is a 1-based line/column span, optionally with a character span
// and snippet. Zero means "not set" for every numeric field.
type Region struct {
	StartLine   int              `json:"startLine,omitempty"`
	StartColumn int              `json:"startColumn,omitempty"`
	EndLine     int              `json:"endLine,omitempty"`
	EndColumn   int              `json:"endColumn,omitempty"`
	CharOffset  int              `json:"charOffset,omitempty"`
	CharLength  int              `json:"charLength,omitempty"`
	Snippet     *ArtifactContent `json:"snippet,omitempty"`
}

// PhysicalLocation points into an artifact.
type PhysicalLocation struct {
	ArtifactLocation *ArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *Region           `json:"region,omitempty"`
	ContextRegion    *Region           `json:"contextRegion,omitempty"`
}

// Location is where a result or notification applies.
type Location struct {
	ID               int               `json:"id,omitempty"`
	PhysicalLocation *PhysicalLocation `json:"physicalLocation,omitempty"`
	Message          *Message          `json:"message,omitempty"`
	Properties       PropertyBag       `json:"properties,omitempty"`
}

// Node is a graph node. Children nest.
type Node struct {
	ID         string      `json:"id"`
	Label      *Message    `json:"label,omitempty"`
	Location   *Location   `json:"location,omitempty"`
	Children   []Node      `json:"children,omitempty"`
	Properties PropertyBag `json:"properties,omitempty"`
}

// Edge connects two nodes of the same graph by ID.
type Edge struct {
	ID           string      `json:"id"`
	Label        *Message    `json:"label,omitempty"`
	SourceNodeID string      `json:"sourceNodeId"`
	TargetNodeID string      `json:"targetNodeId"`
	Properties   PropertyBag `json:"properties,omitempty"`
}

// Graph is a set of nodes and edges attached to a result.
type Graph struct {
	Description *Message    `json:"description,omitempty"`
	Nodes       []Node      `json:"nodes,omitempty"`
	Edges       []Edge      `json:"edges,omitempty"`
	Properties  PropertyBag `json:"properties,omitempty"`
}

// Result is one finding reported by a rule. Immutable once reported.
type Result struct {
	RuleID       string            `json:"ruleId"`
	Kind         ResultKind        `json:"kind"`
	Level        Level             `json:"level"`
	Message      Message           `json:"message"`
	Locations    []Location        `json:"locations,omitempty"`
	Graphs       []Graph           `json:"graphs,omitempty"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
	Properties   PropertyBag       `json:"properties,omitempty"`
}

// ExceptionData describes a failure captured in a notification.
// Stack traces are deliberately absent: they differ between runs.
type ExceptionData struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Notification is a diagnostic about the run itself rather than the
// analyzed code.
type Notification struct {
	DescriptorID     string         `json:"descriptorId"`
	AssociatedRuleID string         `json:"associatedRuleId,omitempty"`
	Level            Level          `json:"level"`
	Message          Message        `json:"message"`
	Locations        []Location     `json:"locations,omitempty"`
	Exception        *ExceptionData `json:"exception,omitempty"`
	Properties       PropertyBag    `json:"properties,omitempty"`
}

// ReportingDescriptor is the static metadata of a rule.
type ReportingDescriptor struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`
	DefaultLevel     Level  `json:"defaultLevel"`
	HelpURI          string `json:"helpUri,omitempty"`
}

// Tool identifies the producer of a report and the rules it ran.
type Tool struct {
	Name    string                `json:"name"`
	Version string                `json:"version,omitempty"`
	Rules   []ReportingDescriptor `json:"rules,omitempty"`
}

// Invocation describes one execution. Start fields are fixed before any
// worker runs; end fields are written once after all workers join.
type Invocation struct {
	CommandLine         string    `json:"commandLine,omitempty"`
	Machine             string    `json:"machine,omitempty"`
	Account             string    `json:"account,omitempty"`
	ProcessID           int       `json:"processId,omitempty"`
	StartTime           time.Time `json:"startTimeUtc"`
	EndTime             time.Time `json:"endTimeUtc"`
	ExitCode            int       `json:"exitCode"`
	ExecutionSuccessful bool      `json:"executionSuccessful"`
	RuntimeConditions   []string  `json:"runtimeConditions,omitempty"`
}

// ArtifactRecord describes one analyzed artifact in the report.
type ArtifactRecord struct {
	Location ArtifactLocation  `json:"location"`
	Length   int64             `json:"length"`
	MIMEType string            `json:"mimeType,omitempty"`
	Hashes   map[string]string `json:"hashes,omitempty"`
	Contents *ArtifactContent  `json:"contents,omitempty"`
}

// Report is a complete, canonically ordered run.
type Report struct {
	SchemaVersion string            `json:"schemaVersion"`
	RunID         string            `json:"runGuid"`
	AutomationID  string            `json:"automationId,omitempty"`
	Tool          Tool              `json:"tool"`
	Invocation    Invocation        `json:"invocation"`
	Conditions    RuntimeConditions `json:"-"`
	Artifacts     []ArtifactRecord  `json:"artifacts,omitempty"`
	Results       []Result          `json:"results"`
	Notifications []Notification    `json:"notifications,omitempty"`
}

// Fingerprint hashes the canonical encoding of a result. It is stable
// across runs and used as the result's "skim/v1" fingerprint.
func Fingerprint(r Result) (string, error) {
	r.Fingerprints = nil
	data, err := Canonicalize(r)
	if err != nil {
		return "", err
	}
	return ContentHash(DomainReport, data), nil
}
