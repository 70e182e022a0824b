package oracle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entail/internal/engine"
	"github.com/roach88/entail/internal/ir"
	"github.com/roach88/entail/internal/rules"
	"github.com/roach88/entail/internal/store"
	"github.com/roach88/entail/internal/testutil"
	"github.com/roach88/entail/internal/vocab"
)

func TestProgram_Rendering(t *testing.T) {
	reg := testutil.Registry()
	std := reg.Std()
	o := New([]ir.Rule{rules.SubClassPropagation(rules.RDFS9, std.Type, std.SubClassOf)}, reg.Kind)

	// Ids 1-5 are the standard vocabulary; book2, Article, Publication follow.
	asserted := testutil.Triples(reg,
		"ex:Article rdfs:subClassOf ex:Publication",
		"ex:book2 rdf:type ex:Article",
	)
	src, err := o.Program(asserted)
	require.NoError(t, err)

	assert.Equal(t, `Decl asserted(S, P, O).
t(S, P, O) :- asserted(S, P, O).
non_iri(X) :- literal(X).
non_iri(X) :- blank(X).
literal(0).
blank(0).
# rdfs9
t(V0, 1, V2) :- t(V0, 1, V1), t(V1, 2, V2), V1 != V2.
asserted(6, 2, 7).
asserted(8, 1, 6).
`, src)
}

func TestProgram_KindFacts(t *testing.T) {
	reg := testutil.Registry()
	o := New(rules.Base(reg).Rules(), reg.Kind)

	asserted := testutil.Triples(reg, `_:b0 ex:title "Moby"`)
	src, err := o.Program(asserted)
	require.NoError(t, err)

	assert.Contains(t, src, fmt.Sprintf("blank(%d).\n", asserted[0].S))
	assert.Contains(t, src, fmt.Sprintf("literal(%d).\n", asserted[0].O))
	assert.Contains(t, src, "!literal(V3)", "rdfs3 skips literals")
}

func TestClosure_Publications(t *testing.T) {
	reg := testutil.Registry()
	o := New(rules.Base(reg).Rules(), reg.Kind)
	asserted := testutil.Triples(reg,
		"ex:book1 rdf:type ex:Publication",
		"ex:book2 rdf:type ex:Article",
		"ex:Article rdfs:subClassOf ex:Publication",
		"ex:publishes rdfs:range ex:Publication",
		"ex:MITPress ex:publishes ex:book3",
	)

	closure, err := o.Closure(asserted)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ex:Article rdfs:subClassOf ex:Publication",
		"ex:MITPress ex:publishes ex:book3",
		"ex:book1 rdf:type ex:Publication",
		"ex:book2 rdf:type ex:Article",
		"ex:book2 rdf:type ex:Publication",
		"ex:book3 rdf:type ex:Publication",
		"ex:publishes rdfs:range ex:Publication",
	}, testutil.SetLines(reg, closure))
}

func TestClosure_Empty(t *testing.T) {
	reg := testutil.Registry()
	closure, err := New(rules.Base(reg).Rules(), reg.Kind).Closure(nil)
	require.NoError(t, err)
	assert.Empty(t, closure)
}

func TestClosure_KindConstraints(t *testing.T) {
	reg := testutil.Registry()
	tag := reg.Intern("ex:tag")
	typ := reg.Std().Type
	kinded := func(name string, c ir.Constraint) ir.Rule {
		return ir.Rule{
			Name:        name,
			Head:        ir.P(ir.Var("y"), ir.Bound(typ), ir.Bound(reg.Intern("ex:"+name))),
			Body:        []ir.Pattern{ir.P(ir.Var("x"), ir.Bound(tag), ir.Var("y"))},
			Constraints: []ir.Constraint{c},
		}
	}
	rs, err := rules.New(
		kinded("IsIRI", ir.IsKind("y", ir.KindIRI)),
		kinded("IsBlank", ir.IsKind("y", ir.KindBlank)),
		kinded("NotIRI", ir.NotKind("y", ir.KindIRI)),
		kinded("NotLiteral", ir.NotKind("y", ir.KindLiteral)),
	)
	require.NoError(t, err)

	asserted := testutil.Triples(reg,
		"ex:s ex:tag ex:named",
		"ex:s ex:tag _:anon",
	)
	closure, err := New(rs.Rules(), reg.Kind).Closure(asserted)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(engineClosure(t, reg, rs, asserted), testutil.SetLines(reg, closure)))
	assert.Contains(t, testutil.SetLines(reg, closure), "ex:named rdf:type ex:IsIRI")
	assert.Contains(t, testutil.SetLines(reg, closure), "_:anon rdf:type ex:IsBlank")
	assert.Contains(t, testutil.SetLines(reg, closure), "_:anon rdf:type ex:NotIRI")
	assert.NotContains(t, testutil.SetLines(reg, closure), "ex:named rdf:type ex:NotIRI")
}

func TestTranslate_UnboundHeadVariable(t *testing.T) {
	reg := vocab.New()
	_, err := New([]ir.Rule{{
		Name: "unsafe",
		Head: ir.P(ir.Var("x"), ir.Bound(reg.Std().Type), ir.Var("nowhere")),
		Body: []ir.Pattern{ir.P(ir.Var("x"), ir.Bound(reg.Std().Type), ir.Var("c"))},
	}}, reg.Kind).Program(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "?nowhere")
}

func TestDiff(t *testing.T) {
	a, b, c := ir.T(1, 2, 3), ir.T(4, 5, 6), ir.T(7, 8, 9)
	missing, extra := Diff(ir.NewTripleSet(a, b), ir.NewTripleSet(b, c))
	assert.Equal(t, []ir.Triple{c}, missing)
	assert.Equal(t, []ir.Triple{a}, extra)

	missing, extra = Diff(ir.NewTripleSet(a), ir.NewTripleSet(a))
	assert.Empty(t, missing)
	assert.Empty(t, extra)
}

func engineClosure(t *testing.T, reg *vocab.Registry, rs *rules.RuleSet, asserted []ir.Triple) []string {
	t.Helper()
	st := store.NewMemory()
	for _, tr := range asserted {
		_, err := st.Insert(context.Background(), tr, store.ScopeAsserted)
		require.NoError(t, err)
	}
	eng := engine.New(st, rs, reg, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := eng.ComputeClosure(context.Background())
	require.NoError(t, err)
	all, err := store.All(context.Background(), st, store.ScopeAll)
	require.NoError(t, err)
	return testutil.SetLines(reg, all)
}

// TestOracle_AgreesWithIncrementalEngine replays random assert/retract
// sequences through the engine and checks each state against Mangle.
func TestOracle_AgreesWithIncrementalEngine(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			reg := testutil.Registry()
			rs := rules.Base(reg)
			st := store.NewMemory()
			eng := engine.New(st, rs, reg, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			o := New(rs.Rules(), reg.Kind)

			var asserted []ir.Triple
			for step := 0; step < 30; step++ {
				if len(asserted) > 0 && rng.Intn(3) == 0 {
					i := rng.Intn(len(asserted))
					_, err := eng.Retract(context.Background(), asserted[i])
					require.NoError(t, err)
					asserted = append(asserted[:i], asserted[i+1:]...)
				} else {
					tr := randomTriple(rng, reg)
					_, err := eng.Assert(context.Background(), tr)
					require.NoError(t, err)
					asserted = append(asserted, tr)
				}
				// Duplicates in asserted are one triple in the store.
				asserted = ir.NewTripleSet(asserted...).Sorted()

				want, err := o.Closure(asserted)
				require.NoError(t, err)
				got, err := store.All(context.Background(), st, store.ScopeAll)
				require.NoError(t, err)

				missing, extra := Diff(got, want)
				require.Empty(t, testutil.Lines(reg, missing), "step %d: engine is missing triples", step)
				require.Empty(t, testutil.Lines(reg, extra), "step %d: engine has extra triples", step)
			}
		})
	}
}

func randomTriple(rng *rand.Rand, reg *vocab.Registry) ir.Triple {
	class := func() string { return fmt.Sprintf("ex:C%d", rng.Intn(4)) }
	prop := func() string { return fmt.Sprintf("ex:p%d", rng.Intn(3)) }
	node := func() string {
		if rng.Intn(5) == 0 {
			return `"lit"`
		}
		return fmt.Sprintf("ex:i%d", rng.Intn(3))
	}

	var s, p, o string
	switch rng.Intn(6) {
	case 0:
		s, p, o = fmt.Sprintf("ex:i%d", rng.Intn(3)), "rdf:type", class()
	case 1:
		s, p, o = class(), "rdfs:subClassOf", class()
	case 2:
		s, p, o = prop(), "rdfs:range", class()
	case 3:
		s, p, o = prop(), "rdfs:domain", class()
	case 4:
		s, p, o = prop(), "rdfs:subPropertyOf", prop()
	default:
		s, p, o = fmt.Sprintf("ex:i%d", rng.Intn(3)), prop(), node()
	}
	return testutil.Triple(reg, s, p, o)
}
