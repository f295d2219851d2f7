package compare

import (
	"slices"

	"github.com/roach88/skim/internal/ir"
)

// Per-entity comparers. Field order is fixed and externally observable.

var ArtifactContents = Struct(
	By("text", func(c ir.ArtifactContent) string { return c.Text }, String),
)

var Messages = Struct(
	By("text", func(m ir.Message) string { return m.Text }, String),
	By("id", func(m ir.Message) string { return m.ID }, String),
	By("arguments", func(m ir.Message) []string { return m.Arguments }, Slice(String)),
)

var ArtifactLocations = Struct(
	By("uri", func(l ir.ArtifactLocation) string { return l.URI }, String),
	By("uriBaseId", func(l ir.ArtifactLocation) string { return l.URIBaseID }, String),
	By("index", func(l ir.ArtifactLocation) *int { return l.Index }, Ptr(Ordered[int])),
)

var Regions = Struct(
	By("startLine", func(r ir.Region) int { return r.StartLine }, Ordered[int]),
	By("startColumn", func(r ir.Region) int { return r.StartColumn }, Ordered[int]),
	By("endLine", func(r ir.Region) int { return r.EndLine }, Ordered[int]),
	By("endColumn", func(r ir.Region) int { return r.EndColumn }, Ordered[int]),
	By("charOffset", func(r ir.Region) int { return r.CharOffset }, Ordered[int]),
	By("charLength", func(r ir.Region) int { return r.CharLength }, Ordered[int]),
	By("snippet.text", func(r ir.Region) *ir.ArtifactContent { return r.Snippet }, Ptr(ArtifactContents)),
)

var PhysicalLocations = Struct(
	By("artifactLocation", func(p ir.PhysicalLocation) *ir.ArtifactLocation { return p.ArtifactLocation }, Ptr(ArtifactLocations)),
	By("region", func(p ir.PhysicalLocation) *ir.Region { return p.Region }, Ptr(Regions)),
	By("contextRegion", func(p ir.PhysicalLocation) *ir.Region { return p.ContextRegion }, Ptr(Regions)),
)

var Locations = Struct(
	By("id", func(l ir.Location) int { return l.ID }, Ordered[int]),
	By("physicalLocation", func(l ir.Location) *ir.PhysicalLocation { return l.PhysicalLocation }, Ptr(PhysicalLocations)),
	By("message", func(l ir.Location) *ir.Message { return l.Message }, Ptr(Messages)),
	By("properties", func(l ir.Location) ir.PropertyBag { return l.Properties }, Properties),
)

// Nodes is assigned in init because a node's children are nodes.
var Nodes Func[ir.Node]

var nodeRef = Lazy(func() Func[ir.Node] { return Nodes })

func init() {
	Nodes = Struct(
		By("id", func(n ir.Node) string { return n.ID }, String),
		By("label", func(n ir.Node) *ir.Message { return n.Label }, Ptr(Messages)),
		By("location", func(n ir.Node) *ir.Location { return n.Location }, Ptr(Locations)),
		By("children", func(n ir.Node) []ir.Node { return n.Children }, Slice(nodeRef)),
		By("properties", func(n ir.Node) ir.PropertyBag { return n.Properties }, Properties),
	)
}

var Edges = Struct(
	By("id", func(e ir.Edge) string { return e.ID }, String),
	By("label", func(e ir.Edge) *ir.Message { return e.Label }, Ptr(Messages)),
	By("sourceNodeId", func(e ir.Edge) string { return e.SourceNodeID }, String),
	By("targetNodeId", func(e ir.Edge) string { return e.TargetNodeID }, String),
	By("properties", func(e ir.Edge) ir.PropertyBag { return e.Properties }, Properties),
)

var Graphs = Struct(
	By("description", func(g ir.Graph) *ir.Message { return g.Description }, Ptr(Messages)),
	By("nodes", func(g ir.Graph) []ir.Node { return g.Nodes }, Slice(nodeRef)),
	By("edges", func(g ir.Graph) []ir.Edge { return g.Edges }, Slice(Edges)),
	By("properties", func(g ir.Graph) ir.PropertyBag { return g.Properties }, Properties),
)

var Results = Struct(
	By("ruleId", func(r ir.Result) string { return r.RuleID }, String),
	By("kind", func(r ir.Result) ir.ResultKind { return r.Kind }, Ordered[ir.ResultKind]),
	By("level", func(r ir.Result) ir.Level { return r.Level }, Ordered[ir.Level]),
	By("message", func(r ir.Result) ir.Message { return r.Message }, Messages),
	By("locations", func(r ir.Result) []ir.Location { return r.Locations }, Slice(Locations)),
	By("graphs", func(r ir.Result) []ir.Graph { return r.Graphs }, Slice(Graphs)),
	By("fingerprints", func(r ir.Result) map[string]string { return r.Fingerprints }, Map[string](String)),
	By("properties", func(r ir.Result) ir.PropertyBag { return r.Properties }, Properties),
)

var Exceptions = Struct(
	By("kind", func(e ir.ExceptionData) string { return e.Kind }, String),
	By("message", func(e ir.ExceptionData) string { return e.Message }, String),
)

var Notifications = Struct(
	By("descriptorId", func(n ir.Notification) string { return n.DescriptorID }, String),
	By("associatedRuleId", func(n ir.Notification) string { return n.AssociatedRuleID }, String),
	By("level", func(n ir.Notification) ir.Level { return n.Level }, Ordered[ir.Level]),
	By("message", func(n ir.Notification) ir.Message { return n.Message }, Messages),
	By("locations", func(n ir.Notification) []ir.Location { return n.Locations }, Slice(Locations)),
	By("exception", func(n ir.Notification) *ir.ExceptionData { return n.Exception }, Ptr(Exceptions)),
	By("properties", func(n ir.Notification) ir.PropertyBag { return n.Properties }, Properties),
)

var ArtifactRecords = Struct(
	By("location", func(a ir.ArtifactRecord) ir.ArtifactLocation { return a.Location }, ArtifactLocations),
	By("length", func(a ir.ArtifactRecord) int64 { return a.Length }, Ordered[int64]),
	By("mimeType", func(a ir.ArtifactRecord) string { return a.MIMEType }, String),
	By("hashes", func(a ir.ArtifactRecord) map[string]string { return a.Hashes }, Map[string](String)),
	By("contents", func(a ir.ArtifactRecord) *ir.ArtifactContent { return a.Contents }, Ptr(ArtifactContents)),
)

var Descriptors = Struct(
	By("id", func(d ir.ReportingDescriptor) string { return d.ID }, String),
	By("name", func(d ir.ReportingDescriptor) string { return d.Name }, String),
	By("shortDescription", func(d ir.ReportingDescriptor) string { return d.ShortDescription }, String),
	By("defaultLevel", func(d ir.ReportingDescriptor) ir.Level { return d.DefaultLevel }, Ordered[ir.Level]),
	By("helpUri", func(d ir.ReportingDescriptor) string { return d.HelpURI }, String),
)

// SortResults sorts results into canonical order in place.
func SortResults(rs []ir.Result) {
	slices.SortStableFunc(rs, Results)
}

// SortNotifications sorts notifications into canonical order in place.
func SortNotifications(ns []ir.Notification) {
	slices.SortStableFunc(ns, Notifications)
}

// SortArtifacts sorts artifact records into canonical order in place.
func SortArtifacts(as []ir.ArtifactRecord) {
	slices.SortStableFunc(as, ArtifactRecords)
}

// SortRules sorts rule descriptors into canonical order in place.
func SortRules(ds []ir.ReportingDescriptor) {
	slices.SortStableFunc(ds, Descriptors)
}
