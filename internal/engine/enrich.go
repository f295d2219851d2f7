package engine

import (
	"bytes"
	"unicode/utf8"

	"github.com/roach88/skim/internal/ir"
)

// lineIndex maps 1-based line numbers to byte ranges of content.
type lineIndex struct {
	content []byte
	starts  []int
}

func newLineIndex(content []byte) *lineIndex {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{content: content, starts: starts}
}

func (li *lineIndex) lines() int {
	if len(li.content) == 0 {
		return 0
	}
	return len(li.starts)
}

// text returns lines first..last inclusive, without the final newline.
func (li *lineIndex) text(first, last int) (string, bool) {
	n := li.lines()
	if first < 1 || first > n {
		return "", false
	}
	last = min(max(last, first), n)
	start := li.starts[first-1]
	end := len(li.content)
	if last < n {
		end = li.starts[last]
	}
	seg := bytes.TrimRight(li.content[start:end], "\r\n")
	if !utf8.Valid(seg) {
		return "", false
	}
	return string(seg), true
}

// enrichResults fills region and context-region snippets for locations
// that point into the artifact. Locations are copied before being changed,
// so values a rule retained are never mutated.
func enrichResults(results []taggedResult, a Artifact, content []byte, d ir.OptionallyEmittedData) {
	wantRegion := d.Has(ir.InsertRegionSnippets)
	wantContext := d.Has(ir.InsertContextRegionSnippets)
	if (!wantRegion && !wantContext) || len(content) == 0 {
		return
	}
	li := newLineIndex(content)

	for i := range results {
		r := &results[i].Result
		if len(r.Locations) == 0 {
			continue
		}
		locs := make([]ir.Location, len(r.Locations))
		copy(locs, r.Locations)
		for j := range locs {
			locs[j] = enrichLocation(locs[j], a.URI, li, wantRegion, wantContext)
		}
		r.Locations = locs
	}
}

func enrichLocation(loc ir.Location, uri string, li *lineIndex, wantRegion, wantContext bool) ir.Location {
	pl := loc.PhysicalLocation
	if pl == nil || pl.Region == nil || pl.Region.StartLine < 1 {
		return loc
	}
	if pl.ArtifactLocation != nil && pl.ArtifactLocation.URI != "" && pl.ArtifactLocation.URI != uri {
		return loc
	}

	plCopy := *pl
	region := *pl.Region
	last := region.EndLine
	if last < region.StartLine {
		last = region.StartLine
	}

	if wantRegion && region.Snippet == nil {
		if s, ok := li.text(region.StartLine, last); ok {
			region.Snippet = &ir.ArtifactContent{Text: s}
		}
	}
	plCopy.Region = &region

	if wantContext && plCopy.ContextRegion == nil {
		first := max(region.StartLine-1, 1)
		end := min(last+1, li.lines())
		if s, ok := li.text(first, end); ok {
			plCopy.ContextRegion = &ir.Region{
				StartLine: first,
				EndLine:   end,
				Snippet:   &ir.ArtifactContent{Text: s},
			}
		}
	}

	loc.PhysicalLocation = &plCopy
	return loc
}

// artifactRecord builds the report entry for an analyzed artifact, or nil
// when no data-to-insert flag asks for one.
func artifactRecord(a Artifact, content []byte, sha string, d ir.OptionallyEmittedData) *ir.ArtifactRecord {
	if !d.Has(ir.InsertHashes) && !d.Has(ir.InsertTextFiles) {
		return nil
	}
	rec := &ir.ArtifactRecord{
		Location: ir.ArtifactLocation{URI: a.URI},
		Length:   int64(len(content)),
		MIMEType: a.MIMEType,
	}
	if d.Has(ir.InsertHashes) && sha != "" {
		rec.Hashes = map[string]string{"sha-256": sha}
	}
	if d.Has(ir.InsertTextFiles) && a.IsText() && utf8.Valid(content) {
		rec.Contents = &ir.ArtifactContent{Text: string(content)}
	}
	return rec
}
