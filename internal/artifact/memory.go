package artifact

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roach88/skim/internal/engine"
)

// Memory serves artifacts held in memory, keyed by URI. The query's
// specifiers are matched against the last path element of each URI;
// Recurse is ignored since the namespace is flat.
//
// Thread-safety: safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory returns an empty provider.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Add stores content under uri, replacing any previous entry.
func (m *Memory) Add(uri string, content []byte) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[uri] = bytes.Clone(content)
	return m
}

// Enumerate implements engine.Provider.
func (m *Memory) Enumerate(ctx context.Context, q engine.Query) ([]engine.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Artifact, 0, len(m.files))
	for uri, content := range m.files {
		if !Matches(q.Specifiers, baseName(uri)) {
			continue
		}
		out = append(out, engine.Artifact{
			URI:      uri,
			Size:     int64(len(content)),
			MIMEType: mimetype.Detect(content).String(),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(content)), nil
			},
		})
	}
	return out, nil
}

func baseName(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(uri)
}
