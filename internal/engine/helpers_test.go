package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/report"
	"github.com/roach88/skim/internal/testutil"
)

// memProvider serves in-memory text files. URIs are "mem:///<name>".
type memProvider struct {
	files map[string]string
	// sizes overrides the reported size of a file.
	sizes map[string]int64
	// broken files fail to open.
	broken map[string]bool
	err    error
}

func files(names ...string) memProvider {
	p := memProvider{files: make(map[string]string)}
	for _, n := range names {
		p.files[n] = fmt.Sprintf("first line of %s\nsecond line x\nthird line\n", n)
	}
	return p
}

func (p memProvider) Enumerate(_ context.Context, q Query) ([]Artifact, error) {
	if p.err != nil {
		return nil, p.err
	}
	var out []Artifact
	// Reverse order so the engine's own sort is exercised.
	names := slices.Sorted(maps.Keys(p.files))
	slices.Reverse(names)
	for _, name := range names {
		if len(q.Specifiers) > 0 && !slices.ContainsFunc(q.Specifiers, func(s string) bool {
			ok, _ := path.Match(s, name)
			return ok
		}) {
			continue
		}
		content := p.files[name]
		size := int64(len(content))
		if s, ok := p.sizes[name]; ok {
			size = s
		}
		broken := p.broken[name]
		out = append(out, Artifact{
			URI:      "mem:///" + name,
			Size:     size,
			MIMEType: "text/plain; charset=utf-8",
			Open: func() (io.ReadCloser, error) {
				if broken {
					return nil, errors.New("permission denied")
				}
				return io.NopCloser(strings.NewReader(content)), nil
			},
		})
	}
	return out, nil
}

// markerRule reports every line containing marker.
func markerRule(id, marker string, level ir.Level) Rule {
	return RuleFunc{
		Desc: ir.ReportingDescriptor{ID: id, Name: "Marker", DefaultLevel: level},
		Fn: func(actx *AnalysisContext) error {
			for i, line := range strings.Split(string(actx.Content()), "\n") {
				if col := strings.Index(line, marker); col >= 0 {
					actx.Report(ir.Result{
						Message:   ir.NewMessage(fmt.Sprintf("found %q", marker)),
						Locations: []ir.Location{actx.Location(ir.Region{StartLine: i + 1, StartColumn: col + 1})},
					})
				}
			}
			return nil
		},
	}
}

// seenRule reports one warning per artifact and counts invocations.
func seenRule(id string, calls *atomic.Int64) Rule {
	return RuleFunc{
		Desc: ir.ReportingDescriptor{ID: id, DefaultLevel: ir.LevelWarning},
		Fn: func(actx *AnalysisContext) error {
			if calls != nil {
				calls.Add(1)
			}
			actx.Report(ir.Result{
				Message:   ir.NewMessage("seen " + actx.Artifact().URI),
				Locations: []ir.Location{actx.Location(ir.Region{StartLine: 1})},
			})
			return nil
		},
	}
}

// pickyRule behaves like seenRule except on the named artifacts, where it
// declines.
func pickyRule(id string, declines ...string) Rule {
	return RuleFunc{
		Desc: ir.ReportingDescriptor{ID: id, DefaultLevel: ir.LevelWarning},
		Fn: func(actx *AnalysisContext) error {
			if slices.Contains(declines, strings.TrimPrefix(actx.Artifact().URI, "mem:///")) {
				return Incompatible("unsupported content")
			}
			actx.Report(ir.Result{Message: ir.NewMessage("picky " + actx.Artifact().URI)})
			return nil
		},
	}
}

// panicRule panics on the named artifact and otherwise does nothing.
func panicRule(id, on string) Rule {
	return RuleFunc{
		Desc: ir.ReportingDescriptor{ID: id, DefaultLevel: ir.LevelError},
		Fn: func(actx *AnalysisContext) error {
			if strings.HasSuffix(actx.Artifact().URI, "/"+on) {
				panic("boom")
			}
			return nil
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(p Provider, rules []Rule, opts Options, extra ...Option) *Engine {
	base := []Option{
		WithLogger(discardLogger()),
		WithClock(testutil.NewDeterministicClock(testutil.Epoch, time.Second)),
		WithRunIDGenerator(testutil.NewFixedRunID("run-test")),
		WithHostInfo(HostInfo{Machine: "host", Account: "user", ProcessID: 42}),
	}
	return New(p, rules, opts, append(base, extra...)...)
}

func allKinds() []ir.ResultKind {
	return []ir.ResultKind{ir.KindFail, ir.KindPass, ir.KindReview, ir.KindOpen, ir.KindInformational, ir.KindNotApplicable}
}

func runReport(t *testing.T, e *Engine) *ir.Report {
	t.Helper()
	rep, err := e.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rep)
	return rep
}

func canonical(t *testing.T, rep *ir.Report) string {
	t.Helper()
	b, err := report.Marshal(rep)
	require.NoError(t, err)
	return string(b)
}

func resultURIs(rep *ir.Report, ruleID string) []string {
	var out []string
	for _, r := range rep.Results {
		if r.RuleID != ruleID {
			continue
		}
		uri := ""
		if len(r.Locations) > 0 && r.Locations[0].PhysicalLocation != nil && r.Locations[0].PhysicalLocation.ArtifactLocation != nil {
			uri = r.Locations[0].PhysicalLocation.ArtifactLocation.URI
		} else {
			uri = strings.TrimPrefix(r.Message.Text, "picky ")
		}
		out = append(out, uri)
	}
	return out
}

func descriptorIDs(rep *ir.Report) []string {
	var out []string
	for _, n := range rep.Notifications {
		out = append(out, n.DescriptorID)
	}
	return out
}

// mapCache is an in-memory OutcomeCache.
type mapCache struct {
	mu   sync.Mutex
	m    map[string]*CachedOutcome
	gets atomic.Int64
	hits atomic.Int64
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]*CachedOutcome)}
}

func (c *mapCache) Get(key string) (*CachedOutcome, bool, error) {
	c.gets.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	co, ok := c.m[key]
	if ok {
		c.hits.Add(1)
	}
	return co, ok, nil
}

func (c *mapCache) Put(key string, co *CachedOutcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = co
	return nil
}

func (c *mapCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
