package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAMLAndTOMLAgree(t *testing.T) {
	fromYAML, err := Load("testdata/full.yaml")
	require.NoError(t, err)
	fromTOML, err := Load("testdata/full.toml")
	require.NoError(t, err)

	yopts, err := fromYAML.Options()
	require.NoError(t, err)
	topts, err := fromTOML.Options()
	require.NoError(t, err)
	assert.Equal(t, yopts, topts)
	assert.Equal(t, "runs.db", fromTOML.DB)
	assert.Equal(t, ".skim-cache", fromYAML.CacheDir)
}

func TestOptions_Full(t *testing.T) {
	cfg, err := Load("testdata/full.yaml")
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)

	assert.Equal(t, 4, opts.Threads)
	assert.True(t, opts.Recurse)
	assert.Equal(t, []string{"*.go", "*.md"}, opts.TargetFileSpecifiers)
	assert.Equal(t, []ir.Level{ir.LevelError}, opts.FailureLevels)
	assert.Equal(t, []ir.ResultKind{ir.KindFail, ir.KindReview}, opts.ResultKinds)
	assert.Equal(t, int64(2048), opts.MaxFileSizeKB)
	assert.Equal(t, ir.InsertHashes|ir.InsertRegionSnippets, opts.DataToInsert)
	assert.Equal(t, ir.IncompatibleDisable, opts.IncompatibleRules)
	assert.Equal(t, "nightly", opts.AutomationID)
	assert.True(t, opts.RichExitCode)
	assert.Equal(t, ir.Int(100), opts.Policy["SKIM1001.maxLineLength"])
	assert.Equal(t, ir.Array{ir.String("TODO"), ir.String("HACK")}, opts.Policy["SKIM1003.markers"])
	assert.Equal(t, []string{"timing"}, opts.Traces)
	require.NoError(t, opts.Validate())
}

func TestOptions_EmptyFileKeepsDefaults(t *testing.T) {
	for _, name := range []string{"empty.yaml", "empty.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, name, ""))
			require.NoError(t, err)
			opts, err := cfg.Options()
			require.NoError(t, err)
			assert.Equal(t, engine.DefaultOptions(), opts)
		})
	}
}

func TestApply_OnlyPresentKeys(t *testing.T) {
	cfg, err := DecodeYAML(strings.NewReader("threads: 0\nrecurse: false\n"))
	require.NoError(t, err)

	opts := engine.DefaultOptions()
	opts.Threads = 8
	opts.Recurse = true
	opts.AutomationID = "keep"
	require.NoError(t, cfg.Apply(&opts))

	assert.Equal(t, 0, opts.Threads)
	assert.False(t, opts.Recurse)
	assert.Equal(t, "keep", opts.AutomationID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown yaml key", "c.yaml", "threads: 2\nworkers: 3\n", "field workers not found"},
		{"unknown toml key", "c.toml", "threads = 2\nworkers = 3\n", "unknown keys: workers"},
		{"unsupported extension", "c.json", "{}", "unsupported extension"},
		{"malformed yaml", "c.yaml", "threads: [\n", "decode yaml"},
		{"malformed toml", "c.toml", "threads = \n", "decode toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_Schema(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantPath string
	}{
		{"negative threads", "threads: -1\n", "threads"},
		{"too many threads", "threads: 5000\n", "threads"},
		{"unknown level", "failure_levels: [fatal]\n", "failure_levels"},
		{"unknown kind", "kinds: [bogus]\n", "kinds"},
		{"unknown insert flag", "insert: [everything]\n", "insert"},
		{"bad handling", "incompatible_rules: explode\n", "incompatible_rules"},
		{"empty pattern", "patterns: [\"\"]\n", "patterns"},
		{"negative size", "max_file_size_kb: -5\n", "max_file_size_kb"},
		{"policy key without rule", "policy:\n  maxLineLength: 3\n", "policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "c.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, path, verr.File)
			require.NotEmpty(t, verr.Problems)
			found := false
			for _, p := range verr.Problems {
				if strings.HasPrefix(p.Path, tt.wantPath) {
					found = true
				}
			}
			assert.True(t, found, "no problem under %q in %v", tt.wantPath, verr.Problems)
		})
	}
}

func TestOptions_RejectsFloatPolicy(t *testing.T) {
	cfg, err := DecodeYAML(strings.NewReader("policy:\n  SKIM1001.ratio: 1.5\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	_, err = cfg.Options()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are not allowed")
}
