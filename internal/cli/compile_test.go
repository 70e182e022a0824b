package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var publishingRules = filepath.Join("..", "..", "testdata", "rules", "publishing.cue")

func TestCompileValidRules(t *testing.T) {
	out, err := execute(t, testOptions("text"), NewCompileCommand, publishingRules)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 rule(s)")
	assert.Contains(t, out, "creator-work: ?w rdf:type ex:Work :- ?w dc:creator ?a, ?w is not literal")
	assert.Contains(t, out, "ex-subclass: ?x rdf:type ?c2 :- ?x rdf:type ?c1, ?c1 ex:subClassOf ?c2, ?c1 != ?c2")
}

func TestCompileValidRulesJSON(t *testing.T) {
	out, err := execute(t, testOptions("json"), NewCompileCommand, publishingRules)
	require.NoError(t, err)

	var result CompilationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Rules, 2)
	assert.Equal(t, RenderedRule{
		Name:  "creator-work",
		Head:  "?w rdf:type ex:Work",
		Body:  []string{"?w dc:creator ?a"},
		Where: []string{"?w is not literal"},
	}, result.Rules[0])
}

func TestCompileWithBase(t *testing.T) {
	out, err := execute(t, testOptions("json"), NewCompileCommand, publishingRules, "--with-base")
	require.NoError(t, err)

	var result CompilationResult
	decode(t, out, &result)
	var names []string
	for _, r := range result.Rules {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"rdfs9", "rdfs3", "rdfs2", "rdfs11", "rdfs5", "rdfs7", "creator-work", "ex-subclass"}, names)
	assert.Equal(t, []string{"?y is not literal"}, result.Rules[1].Where)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	out, err := execute(t, testOptions("text"), NewCompileCommand, publishingRules, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote rules to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Rules, 2)
}

func TestCompileDatalog(t *testing.T) {
	out, err := execute(t, testOptions("text"), NewCompileCommand, publishingRules, "--datalog")
	require.NoError(t, err)

	assert.Contains(t, out, "t(S, P, O) :- asserted(S, P, O).")
	assert.Contains(t, out, "# rdfs9\n")
	assert.Contains(t, out, "# creator-work\n")
	assert.NotContains(t, out, "asserted(1", "no facts without input")
}

func TestCompileDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prefixes.cue", `
package rules

prefix: ex: "http://www.example.org/#"
`)
	writeFile(t, dir, "typing.cue", `
package rules

rule: "author-agent": {
	head: ["?a", "rdf:type", "ex:Agent"]
	body: [["?w", "ex:author", "?a"]]
}
`)

	out, err := execute(t, testOptions("json"), NewCompileCommand, dir)
	require.NoError(t, err)

	var result CompilationResult
	decode(t, out, &result)
	require.Len(t, result.Rules, 1)
	assert.Equal(t, "?a rdf:type ex:Agent", result.Rules[0].Head)
}

func TestCompileInvalidRule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", `
package test

prefix: ex: "http://www.example.org/#"

rule: good: {
	head: ["?x", "rdf:type", "ex:C"]
	body: [["?x", "ex:p", "?y"]]
}
rule: bad: {
	head: ["?x", "rdf:type", "nope:C"]
	body: [["?x", "ex:p", "?y"]]
}
`)

	out, err := execute(t, testOptions("text"), NewCompileCommand, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "compilation failed with 1 error(s)")
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, ErrCodeRulePattern)
	assert.Contains(t, out, `unknown prefix "nope"`)
}

func TestCompileInvalidRuleJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `rule: r: {head: ["?x", "rdf:type"], body: [["?x", "rdf:type", "?c"]]}`)

	out, err := execute(t, testOptions("json"), NewCompileCommand, path)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRulePattern, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "pattern needs 3 terms, got 2")
}

func TestCompileUnsafeRule(t *testing.T) {
	path := writeFile(t, t.TempDir(), "unsafe.cue", `
rule: unsafe: {
	head: ["?x", "rdf:type", "?nowhere"]
	body: [["?x", "rdf:type", "?c"]]
}`)

	_, err := execute(t, testOptions("text"), NewCompileCommand, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeBuildFailed)
}

func TestCompileMissingPath(t *testing.T) {
	out, err := execute(t, testOptions("text"), NewCompileCommand, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestCompileEmptyDirectory(t *testing.T) {
	_, err := execute(t, testOptions("text"), NewCompileCommand, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}
