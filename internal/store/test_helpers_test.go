package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

const exNS = "http://www.example.org/#"

// createTestStore opens a SQLite store in a temp dir.
func createTestStore(t *testing.T, reg *vocab.Registry) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, reg)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns a constructor per Store implementation, for tests that
// must hold for every backend.
func backends() map[string]func(t *testing.T, reg *vocab.Registry) Store {
	return map[string]func(t *testing.T, reg *vocab.Registry) Store{
		"memory": func(*testing.T, *vocab.Registry) Store { return NewMemory() },
		"sqlite": func(t *testing.T, reg *vocab.Registry) Store { return createTestStore(t, reg) },
	}
}

// tr interns a triple written with prefixed names.
func tr(reg *vocab.Registry, s, p, o string) ir.Triple {
	return ir.T(reg.Intern(s), reg.Intern(p), reg.Intern(o))
}

func newRegistry() *vocab.Registry {
	return vocab.New(vocab.WithPrefix("ex", exNS))
}
