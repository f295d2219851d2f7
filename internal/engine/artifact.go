package engine

import (
	"context"
	"io"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Artifact is one analyzable unit. Immutable once enumerated.
type Artifact struct {
	// URI locates the artifact; it is the canonical sort key.
	URI string

	// Size is the byte length reported by the provider.
	Size int64

	// MIMEType is the detected content type, e.g. "text/plain; charset=utf-8".
	MIMEType string

	// Open returns a fresh reader over the content.
	Open func() (io.ReadCloser, error)

	// Index is the position in the canonical enumeration. The engine
	// assigns it; providers leave it zero.
	Index int
}

// IsText reports whether the MIME type is text/* or a text-based format
// such as application/json.
func (a Artifact) IsText() bool {
	base, _, _ := strings.Cut(a.MIMEType, ";")
	base = strings.TrimSpace(base)
	if strings.HasPrefix(base, "text/") {
		return true
	}
	for m := mimetype.Lookup(base); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Query selects which artifacts a provider yields.
type Query struct {
	// Specifiers are glob patterns matched against base names.
	Specifiers []string

	// Recurse descends into nested containers.
	Recurse bool
}

// Provider enumerates analysis targets.
type Provider interface {
	Enumerate(ctx context.Context, q Query) ([]Artifact, error)
}

// canonicalArtifacts sorts by URI and drops duplicate URIs.
func canonicalArtifacts(in []Artifact) []Artifact {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Artifact) int {
		return strings.Compare(a.URI, b.URI)
	})
	out = slices.CompactFunc(out, func(a, b Artifact) bool {
		return a.URI == b.URI
	})
	return out
}
