package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entail/internal/compiler"
)

func TestValidateValidRules(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{publishingRules})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ All rules valid (2 custom)")
	assert.Contains(t, output, "Recursion:")
}

func TestValidateValidRulesJSON(t *testing.T) {
	out, err := execute(t, testOptions("json"), NewValidateCommand, publishingRules)
	require.NoError(t, err)

	var result ValidationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Rules)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.Recursion)
}

func TestValidateNonExistentPath(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, err := execute(t, testOptions("text"), NewValidateCommand, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
}

func TestValidateRuleErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantCode string
	}{
		{
			name: "unsafe head",
			src: `rule: unsafe: {
	head: ["?x", "rdf:type", "?nowhere"]
	body: [["?x", "rdf:type", "?c"]]
}`,
			wantCode: compiler.ErrUnsafeHeadVariable,
		},
		{
			name: "literal subject",
			src: `rule: "literal-subject": {
	head: ["\"x\"", "rdf:type", "?c"]
	body: [["?y", "rdf:type", "?c"]]
}`,
			wantCode: compiler.ErrLiteralPosition,
		},
		{
			name: "shadows a base rule",
			src: `rule: rdfs9: {
	head: ["?x", "rdf:type", "?c"]
	body: [["?x", "rdf:type", "?c"]]
}`,
			wantCode: compiler.ErrDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "rules.cue", tt.src)

			out, err := execute(t, testOptions("json"), NewValidateCommand, path)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var result ValidationResult
			resp := decode(t, out, &result)
			assert.Equal(t, "error", resp.Status)
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, tt.wantCode, result.Errors[0].Code)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.cue", `
package test

rule: one: {
	head: ["?x", "rdf:type", "?nowhere"]
	body: [["?x", "rdf:type", "?c"]]
}
rule: two: {
	head: ["?x", "rdf:type", "?c"]
	body: [["?x", "nope:p", "?c"]]
}
rule: three: {
	head: ["?y", "rdf:type", "?c"]
	body: [["?x", "rdf:type", "?c"]]
}
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed with 3 error(s)")

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, ErrCodeRulePattern) // two: unknown prefix
	assert.Contains(t, output, "rule one")
	assert.Contains(t, output, "rule three")
}

func TestValidateNoRules(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prefixes.cue", `prefix: ex: "http://www.example.org/#"`)

	out, err := execute(t, testOptions("json"), NewValidateCommand, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "rule")
}
