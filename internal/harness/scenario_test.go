package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

const minimalScenario = `
name: minimal
description: one scripted rule
files:
  a.txt: "alpha\n"
rules:
  - id: T001
    on:
      - match: "*"
        report: 1
`

func TestLoadScenario_Valid(t *testing.T) {
	p := writeScenario(t, t.TempDir(), "minimal.yaml", minimalScenario)

	s, err := LoadScenario(p)
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "alpha\n", s.Files["a.txt"])
	require.Len(t, s.Rules, 1)
	assert.Equal(t, "T001", s.Rules[0].ID)
	assert.Equal(t, DefaultThreads, s.threads())
	assert.Equal(t, DefaultMaxRuns, s.maxRuns())
}

func TestLoadScenario_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.IsIncreasing(t, names)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	p := writeScenario(t, t.TempDir(), "typo.yaml", minimalScenario+"flow_tokn: x\n")

	_, err := LoadScenario(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "description: d\nfiles: {a: x}\nrules: [{id: T1}]\n",
			want: "name is required",
		},
		{
			name: "missing files",
			body: "name: n\ndescription: d\nrules: [{id: T1}]\n",
			want: "files map is required",
		},
		{
			name: "missing rules",
			body: "name: n\ndescription: d\nfiles: {a: x}\n",
			want: "rules list is required",
		},
		{
			name: "unknown builtin",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{builtin: SKIM9999}]\n",
			want: "unknown builtin rule",
		},
		{
			name: "duplicate rule",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{id: T1}, {id: T1}]\n",
			want: "duplicate rule T1",
		},
		{
			name: "bad level",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{id: T1, level: loud}]\n",
			want: "rule T1",
		},
		{
			name: "exclusive actions",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{id: T1, on: [{match: '*', report: 1, panic: p}]}]\n",
			want: "exclusive",
		},
		{
			name: "bad glob",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{id: T1, on: [{match: '[', report: 1}]}]\n",
			want: "bad match",
		},
		{
			name: "bad options",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{id: T1}]\noptions: {threads: -1}\n",
			want: "options",
		},
		{
			name: "unknown assertion",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{id: T1}]\nassertions: [{type: trace_contains}]\n",
			want: "unknown assertion type",
		},
		{
			name: "result_present without uri",
			body: "name: n\ndescription: d\nfiles: {a: x}\nrules: [{id: T1}]\nassertions: [{type: result_present, rule: T1}]\n",
			want: "requires rule and uri",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeScenario(t, t.TempDir(), "s.yaml", tt.body)
			_, err := LoadScenario(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", minimalScenario)
	writeScenario(t, dir, "b.yaml", minimalScenario)

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "minimal"`)
}
