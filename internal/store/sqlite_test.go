package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/vocab"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, vocab.New())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path, vocab.New())
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path, vocab.New())
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"triples", "prefixes"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t, vocab.New())

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_MigratesToCurrentVersion(t *testing.T) {
	s := createTestStore(t, vocab.New())

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_triples_osp'",
	).Scan(&name)
	assert.NoError(t, err)
}

func TestSQLite_PersistsAcrossRegistries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	reg1 := newRegistry()
	s1, err := Open(path, reg1)
	require.NoError(t, err)
	book := tr(reg1, "ex:book1", "rdf:type", "ex:Publication")
	_, err = s1.Insert(ctx, book, ScopeAsserted)
	require.NoError(t, err)
	require.NoError(t, s1.SavePrefixes(ctx))
	require.NoError(t, s1.Close())

	// A fresh registry issues ids in a different order; the store must
	// still hand back the same lexical triple.
	reg2 := vocab.New()
	reg2.Intern("ex:unrelated")
	s2, err := Open(path, reg2)
	require.NoError(t, err)
	defer s2.Close()

	ns, ok := reg2.Namespace("ex")
	require.True(t, ok, "prefix restored from the database")
	assert.Equal(t, exNS, ns)

	set, err := All(ctx, s2, ScopeAsserted)
	require.NoError(t, err)
	require.Len(t, set, 1)
	for got := range set {
		assert.Equal(t, "ex:book1 rdf:type ex:Publication", reg2.Format(got))
	}
}

func TestSQLite_ClosedDatabaseReturnsIOError(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	s := createTestStore(t, reg)
	require.NoError(t, s.Close())

	_, err := s.Insert(ctx, tr(reg, "ex:a", "rdf:type", "ex:B"), ScopeAsserted)
	require.Error(t, err)
	assert.True(t, IsIOError(err))

	_, err = s.Match(ctx, ir.P(ir.Var("s"), ir.Var("p"), ir.Var("o")), ScopeAll)
	assert.True(t, IsIOError(err))

	_, err = s.Len(ctx, ScopeAll)
	assert.True(t, IsIOError(err))
}
