package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosure_Text(t *testing.T) {
	data := writeFile(t, t.TempDir(), "novel.nt", novelData)

	out, err := execute(t, testOptions("text"), NewClosureCommand, data)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Closure computed (run run-1)")
	assert.Contains(t, out, "triples added:  3")
	assert.Contains(t, out, "rounds:         3")
	assert.Contains(t, out, "derived:        3")
}

func TestClosure_JSON(t *testing.T) {
	data := writeFile(t, t.TempDir(), "novel.nt", novelData)

	out, err := execute(t, testOptions("json"), NewClosureCommand, data, "--print")
	require.NoError(t, err)

	var result ClosureResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 3, result.Loaded)
	assert.Equal(t, 3, result.TriplesAdded)
	assert.Equal(t, 3, result.RoundsRun)
	assert.Equal(t, 4, result.Justifications)
	assert.Equal(t, 3, result.Asserted)
	assert.Equal(t, 3, result.Derived)
	assert.Equal(t, []string{
		"ex:Novel rdfs:subClassOf ex:Work",
		"ex:dune rdf:type ex:Book",
		"ex:dune rdf:type ex:Work",
	}, result.Triples)
}

func TestClosure_PrintNTriples(t *testing.T) {
	data := writeFile(t, t.TempDir(), "novel.nt", novelData)

	out, err := execute(t, testOptions("text"), NewClosureCommand, data, "--print", "--style", "full")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "<http://www.example.org/#"), l)
		assert.True(t, strings.HasSuffix(l, " ."), l)
	}
}

func TestClosure_Stdin(t *testing.T) {
	cmd := NewClosureCommand(testOptions("json"))
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(novelData))
	cmd.SetArgs([]string{"-"})
	require.NoError(t, cmd.Execute())

	var result ClosureResult
	decode(t, out.String(), &result)
	assert.Equal(t, 3, result.TriplesAdded)
}

func TestClosure_BadInput(t *testing.T) {
	data := writeFile(t, t.TempDir(), "bad.nt", "ex:a ex:b\n")

	_, err := execute(t, testOptions("text"), NewClosureCommand, data)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeBadInput)
}

func TestClosure_MissingFile(t *testing.T) {
	_, err := execute(t, testOptions("text"), NewClosureCommand, filepath.Join(t.TempDir(), "missing.nt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestClosure_InvalidStyle(t *testing.T) {
	_, err := execute(t, testOptions("text"), NewClosureCommand, "--style", "turtle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid style")
}

func TestClosure_MaxRoundsExceeded(t *testing.T) {
	data := writeFile(t, t.TempDir(), "novel.nt", novelData)
	opts := testOptions("text")
	opts.MaxRounds = 1

	_, err := execute(t, opts, NewClosureCommand, data)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeEngine)
}

func TestClosure_CustomRules(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "books.nt", `@prefix ex: <http://www.example.org/#> .
@prefix dc: <http://purl.org/dc/terms/> .
ex:dune dc:creator ex:herbert .
`)
	opts := testOptions("json")
	opts.Rules = filepath.Join("..", "..", "testdata", "rules", "publishing.cue")

	out, err := execute(t, opts, NewClosureCommand, data, "--print")
	require.NoError(t, err)

	var result ClosureResult
	decode(t, out, &result)
	assert.Equal(t, []string{"ex:dune rdf:type ex:Work"}, result.Triples)
}

func TestClosure_MetricsFile(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "novel.nt", novelData)
	opts := testOptions("text")
	opts.MetricsFile = filepath.Join(dir, "metrics.prom")

	_, err := execute(t, opts, NewClosureCommand, data)
	require.NoError(t, err)

	raw, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "entail_engine_runs_total")
	assert.Contains(t, string(raw), "entail_engine_rounds_total")
}
