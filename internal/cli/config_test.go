package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "entail.yaml", `
prefixes:
  ex: "http://www.example.org/#"
db: data/closure.db
rules: rules
max_rounds: 128
parallel: 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ex": "http://www.example.org/#"}, cfg.Prefixes)
	assert.Equal(t, filepath.Join(dir, "data", "closure.db"), cfg.DB)
	assert.Equal(t, filepath.Join(dir, "rules"), cfg.Rules)
	assert.Equal(t, 128, cfg.MaxRounds)
	assert.Equal(t, 4, cfg.Parallel)
}

func TestLoadConfig_KeepsMemoryAndAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "rules.cue")
	path := writeFile(t, dir, "entail.yaml", "db: \":memory:\"\nrules: "+abs+"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.DB)
	assert.Equal(t, abs, cfg.Rules)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "dbpath: x.db\n", "failed to parse YAML"},
		{"negative rounds", "max_rounds: -1\n", "max_rounds must be non-negative"},
		{"negative parallel", "parallel: -2\n", "parallel must be non-negative"},
		{"empty namespace", "prefixes:\n  ex: \"\"\n", "empty prefix or namespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "entail.yaml", tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_FlagsOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "entail.yaml", `
prefixes:
  ex: "http://www.example.org/#"
max_rounds: 1
`)
	// Compact prefixed output proves the config prefixes reached the registry.
	data := writeFile(t, dir, "data.nt", "<http://www.example.org/#dune> rdf:type <http://www.example.org/#Novel> .\n"+
		"<http://www.example.org/#Novel> rdfs:subClassOf <http://www.example.org/#Book> .\n")

	opts := testOptions("")
	cmd := newRootCommand(opts)
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", cfgPath, "--format", "json", "--max-rounds", "10", "closure", data, "--print"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, 10, opts.MaxRounds)
	var result ClosureResult
	decode(t, out.String(), &result)
	assert.Equal(t, []string{"ex:dune rdf:type ex:Book"}, result.Triples)
}

func TestConfig_AppliesWhenFlagUnset(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "entail.yaml", "max_rounds: 1\n")
	data := writeFile(t, dir, "novel.nt", novelData)

	opts := testOptions("text")
	cmd := newRootCommand(opts)
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	cmd.SetArgs([]string{"--config", cfgPath, "closure", data})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 1, opts.MaxRounds)
	assert.Contains(t, err.Error(), ErrCodeEngine)
}
