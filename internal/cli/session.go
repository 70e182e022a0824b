package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/entail/internal/engine"
	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/metric"
	"github.com/roach88/entail/internal/ntriples"
	"github.com/roach88/entail/internal/rules"
	"github.com/roach88/entail/internal/store"
	"github.com/roach88/entail/internal/vocab"
)

// session is what every engine command works on: a registry, the rule set,
// a store and an engine over them. Commands open one, use it and close it.
type session struct {
	opts    *RootOptions
	reg     *vocab.Registry
	ruleSet *rules.RuleSet
	store   store.Store
	sqlite  *store.SQLite // nil for the in-memory store
	engine  *engine.Engine
	metrics *prometheus.Registry // nil unless --metrics-file
	logger  *slog.Logger
}

// newLogger returns a text logger on w: debug level when verbose, warnings
// only otherwise so command output stays readable.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newRegistry creates a registry with the configured prefixes.
func newRegistry(opts *RootOptions) *vocab.Registry {
	prefixes := make([]string, 0, len(opts.Prefixes))
	for p := range opts.Prefixes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	regOpts := make([]vocab.Option, 0, len(prefixes))
	for _, p := range prefixes {
		regOpts = append(regOpts, vocab.WithPrefix(p, opts.Prefixes[p]))
	}
	return vocab.New(regOpts...)
}

// openSession builds the registry, compiles --rules, opens --db (or an
// in-memory store) and creates the engine.
func openSession(opts *RootOptions, errOut io.Writer) (*session, error) {
	logger := newLogger(opts.Verbose, errOut)

	reg := newRegistry(opts)

	ruleSet := rules.Base(reg)
	if opts.Rules != "" {
		result, errs := LoadRules(opts.Rules, reg, LoadModeFailFast)
		if len(errs) > 0 {
			return nil, WrapExitError(ExitCommandError, "failed to load rules", errs[0])
		}
		rs, err := rules.WithCustomRules(ruleSet, result.Rules...)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid rules", err)
		}
		ruleSet = rs
		logger.Debug("rules loaded", "path", opts.Rules, "custom", len(result.Rules), "total", rs.Len())
	}

	s := &session{opts: opts, reg: reg, ruleSet: ruleSet, logger: logger}

	if opts.DB != "" {
		logger.Debug("opening database", "path", opts.DB)
		db, err := store.Open(opts.DB, reg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		s.store, s.sqlite = db, db
	} else {
		s.store = store.NewMemory()
	}

	engOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithMaxRounds(opts.MaxRounds),
		engine.WithParallelism(opts.Parallel),
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.MetricsFile != "" {
		s.metrics = prometheus.NewRegistry()
		engOpts = append(engOpts, engine.WithMetrics(metric.New(s.metrics)))
	}
	s.engine = engine.New(s.store, ruleSet, reg, engOpts...)
	logger.Debug("engine ready", "engine", s.engine.String())

	return s, nil
}

// Close persists prefixes, writes the metrics file and closes the store.
func (s *session) Close() error {
	var errs []error
	if s.sqlite != nil {
		if err := s.sqlite.SavePrefixes(context.Background()); err != nil {
			errs = append(errs, err)
		}
		if err := s.sqlite.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.metrics != nil {
		if err := prometheus.WriteToTextfile(s.opts.MetricsFile, s.metrics); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// closeInto closes s and keeps the first error.
func (s *session) closeInto(err *error) {
	if cerr := s.Close(); cerr != nil {
		s.logger.Error("error closing session", "error", cerr)
		if *err == nil {
			*err = WrapExitError(ExitCommandError, "failed to close session", cerr)
		}
	}
}

// readTriples parses triple files. "-" reads in.
func (s *session) readTriples(paths []string, in io.Reader) ([]ir.Triple, error) {
	var out []ir.Triple
	for _, path := range paths {
		var r io.Reader = in
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "failed to open input", err)
			}
			defer f.Close()
			r = f
		}
		ts, err := ntriples.Parse(r, s.reg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeBadInput, path), err)
		}
		s.logger.Debug("read input", "path", path, "triples", len(ts))
		out = append(out, ts...)
	}
	return out, nil
}

// load inserts triples as asserted without running rules. Returns how
// many were new.
func (s *session) load(ctx context.Context, ts []ir.Triple) (int, error) {
	n := 0
	for _, t := range ts {
		added, err := s.store.Insert(ctx, t, store.ScopeAsserted)
		if err != nil {
			return n, WrapExitError(ExitCommandError, ErrCodeStore+": failed to load triple", err)
		}
		if added {
			n++
		}
	}
	return n, nil
}

// parseTriple reads one triple argument.
func (s *session) parseTriple(arg string) (ir.Triple, error) {
	ts, err := ntriples.ParseString(arg, s.reg)
	if err != nil {
		return ir.Triple{}, WrapExitError(ExitCommandError, fmt.Sprintf("%s: invalid triple %q", ErrCodeBadInput, arg), err)
	}
	if len(ts) != 1 {
		return ir.Triple{}, NewExitError(ExitCommandError, fmt.Sprintf("%s: expected one triple in %q, got %d", ErrCodeBadInput, arg, len(ts)))
	}
	return ts[0], nil
}

// formatter builds the output formatter for a command.
func (s *session) formatter(out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    s.opts.Format,
		Writer:    out,
		ErrWriter: errOut, // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   s.opts.Verbose,
	}
}

// lines renders triples compacted and sorted.
func (s *session) lines(ts []ir.Triple) []string {
	out := s.formatEach(ts)
	sort.Strings(out)
	return out
}

// formatEach renders triples compacted, keeping their order.
func (s *session) formatEach(ts []ir.Triple) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = s.reg.Format(t)
	}
	return out
}
