package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skim/internal/ir"
)

func TestLineIndex(t *testing.T) {
	li := newLineIndex([]byte("one\r\ntwo\nthree"))
	assert.Equal(t, 3, li.lines())

	s, ok := li.text(1, 1)
	require.True(t, ok)
	assert.Equal(t, "one", s)

	s, ok = li.text(2, 99)
	require.True(t, ok)
	assert.Equal(t, "two\nthree", s)

	_, ok = li.text(0, 1)
	assert.False(t, ok)
	_, ok = li.text(4, 4)
	assert.False(t, ok)

	assert.Equal(t, 0, newLineIndex(nil).lines())
}

func TestLineIndex_RejectsInvalidUTF8(t *testing.T) {
	li := newLineIndex([]byte{'o', 'k', '\n', 0xff, 0xfe})
	_, ok := li.text(2, 2)
	assert.False(t, ok)
}

func TestEnrichResults_DoesNotMutateRuleValues(t *testing.T) {
	a := Artifact{URI: "mem:///a"}
	region := &ir.Region{StartLine: 2}
	loc := ir.Location{PhysicalLocation: &ir.PhysicalLocation{
		ArtifactLocation: &ir.ArtifactLocation{URI: "mem:///a"},
		Region:           region,
	}}
	original := []ir.Location{loc}
	results := []taggedResult{{Result: ir.Result{Locations: original}}}

	enrichResults(results, a, []byte("l1\nl2\nl3\n"), ir.InsertRegionSnippets)

	assert.Nil(t, region.Snippet, "the rule's region is untouched")
	assert.Nil(t, original[0].PhysicalLocation.Region.Snippet)
	got := results[0].Result.Locations[0].PhysicalLocation.Region.Snippet
	require.NotNil(t, got)
	assert.Equal(t, "l2", got.Text)
	assert.Nil(t, results[0].Result.Locations[0].PhysicalLocation.ContextRegion)
}

func TestEnrichResults_SkipsForeignAndPresetSnippets(t *testing.T) {
	a := Artifact{URI: "mem:///a"}
	foreign := ir.Location{PhysicalLocation: &ir.PhysicalLocation{
		ArtifactLocation: &ir.ArtifactLocation{URI: "mem:///other"},
		Region:           &ir.Region{StartLine: 1},
	}}
	preset := ir.Location{PhysicalLocation: &ir.PhysicalLocation{
		Region: &ir.Region{StartLine: 1, Snippet: &ir.ArtifactContent{Text: "mine"}},
	}}
	results := []taggedResult{{Result: ir.Result{Locations: []ir.Location{foreign, preset}}}}

	enrichResults(results, a, []byte("l1\n"), ir.InsertRegionSnippets|ir.InsertContextRegionSnippets)

	locs := results[0].Result.Locations
	assert.Nil(t, locs[0].PhysicalLocation.Region.Snippet)
	assert.Equal(t, "mine", locs[1].PhysicalLocation.Region.Snippet.Text)
	require.NotNil(t, locs[1].PhysicalLocation.ContextRegion)
	assert.Equal(t, "l1", locs[1].PhysicalLocation.ContextRegion.Snippet.Text)
}

func TestArtifactRecord(t *testing.T) {
	text := Artifact{URI: "mem:///a", MIMEType: "text/plain"}
	bin := Artifact{URI: "mem:///b", MIMEType: "application/octet-stream"}

	assert.Nil(t, artifactRecord(text, []byte("x"), "abc", ir.InsertRegionSnippets))

	rec := artifactRecord(text, []byte("x"), "abc", ir.InsertHashes|ir.InsertTextFiles)
	require.NotNil(t, rec)
	assert.Equal(t, "abc", rec.Hashes["sha-256"])
	assert.Equal(t, "x", rec.Contents.Text)

	rec = artifactRecord(bin, []byte{0, 1}, "def", ir.InsertTextFiles)
	require.NotNil(t, rec)
	assert.Nil(t, rec.Contents, "binary content is never inlined")
	assert.Nil(t, rec.Hashes)
	assert.Equal(t, int64(2), rec.Length)
}

func TestArtifact_IsText(t *testing.T) {
	assert.True(t, Artifact{MIMEType: "text/plain; charset=utf-8"}.IsText())
	assert.True(t, Artifact{MIMEType: "text/html"}.IsText())
	assert.True(t, Artifact{MIMEType: "application/json"}.IsText())
	assert.False(t, Artifact{MIMEType: "image/png"}.IsText())
	assert.False(t, Artifact{MIMEType: "application/octet-stream"}.IsText())
	assert.False(t, Artifact{}.IsText())
}
