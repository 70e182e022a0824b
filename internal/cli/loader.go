package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/entail/internal/compiler"
	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the rules loaded from a file or directory.
type LoadResult struct {
	Rules     []ir.Rule
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during rule loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules loads and compiles CUE rules from a single file or from the
// CUE package in a directory. Prefixes declared in the rules are
// registered with reg.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, compiles every rule and collects all errors.
func LoadRules(path string, reg *vocab.Registry, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules path: %v", err)}}
	}

	ctx := cuecontext.New()
	var value cue.Value
	var fileCount int

	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
		fileCount = len(cueFiles)

		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
		}
		value = ctx.BuildInstance(inst)
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
		}
		fileCount = 1
		value = ctx.CompileBytes(src, cue.Filename(path))
	}

	if err := value.Err(); err != nil {
		return nil, []error{convertCompileError(compiler.FormatCUEError(err), "build")}
	}

	result := &LoadResult{CUEValue: value, FileCount: fileCount}

	if mode == LoadModeFailFast {
		rs, err := compiler.CompileValue(value, reg)
		if err != nil {
			return result, []error{convertCompileError(err, "rules")}
		}
		result.Rules = rs
		return result, nil
	}

	return result, collectRules(value, reg, result)
}

// collectRules compiles each rule on its own so one bad rule does not hide
// the others.
func collectRules(value cue.Value, reg *vocab.Registry, result *LoadResult) []error {
	all, err := compiler.CompileValue(value, reg)
	if err == nil {
		result.Rules = all
		return nil
	}

	var errs []error
	iter, iterErr := value.LookupPath(cue.ParsePath("rule")).Fields()
	if iterErr != nil {
		return []error{convertCompileError(err, "rules")}
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		r, compileErr := compiler.CompileRule(name, iter.Value(), reg)
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "rule."+name))
			continue
		}
		result.Rules = append(result.Rules, r)
	}
	if len(errs) == 0 {
		// Every rule compiles on its own; the file as a whole does not.
		errs = append(errs, convertCompileError(err, "rules"))
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadInput    = "E008" // Malformed triple input
	ErrCodeStore       = "E009" // Store open/read/write failure
	ErrCodeEngine      = "E010" // Closure, assert or retract failed

	ErrCodeVerifyMismatch = "E011" // Engine and datalog closures differ

	// Rule compilation errors
	ErrCodeRuleSchema  = "E120" // Rule does not match the schema
	ErrCodeRulePattern = "E121" // Malformed head or body pattern
	ErrCodeRuleWhere   = "E122" // Malformed where constraint
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeRuleSchema
	case field == "rule":
		return ErrCodeGeneric
	case hasSuffixField(field, "head"), hasSuffixField(field, "body"):
		return ErrCodeRulePattern
	case hasSuffixField(field, "where"):
		return ErrCodeRuleWhere
	default:
		return ErrCodeGeneric
	}
}

// hasSuffixField reports whether the last segment of a field path, index
// stripped, is name: "rule.x.body[1]" has suffix field "body".
func hasSuffixField(field, name string) bool {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	return field == name
}
