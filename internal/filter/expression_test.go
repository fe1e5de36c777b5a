package filter

import (
	"testing"

	"github.com/product-os/autumndb-sub002/internal/sqlbuild"
)

func eqLeaf(value string) *Expression {
	return Leaf(&Equals{Path: slugPath(), Values: []any{value}})
}

func TestAndAbsorbsTrue(t *testing.T) {
	e := eqLeaf("foo").And(True())
	b := sqlbuild.New()
	got, err := e.Render(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != "cards.slug = $1" {
		t.Fatalf("expected True() absorbed, got %q", got)
	}
}

func TestAndAbsorbsFalse(t *testing.T) {
	e := eqLeaf("foo").And(False())
	if !e.IsUnsatisfiable() {
		t.Fatal("expected And with False() to collapse to false")
	}
}

func TestOrAbsorbsTrue(t *testing.T) {
	e := eqLeaf("foo").Or(True())
	b := sqlbuild.New()
	got, err := e.Render(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != "TRUE" {
		t.Fatalf("expected Or with True() to collapse to TRUE, got %q", got)
	}
}

func TestOrAbsorbsFalse(t *testing.T) {
	e := eqLeaf("foo").Or(False())
	b := sqlbuild.New()
	got, err := e.Render(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != "cards.slug = $1" {
		t.Fatalf("expected False() absorbed, got %q", got)
	}
}

func TestNegateFoldsDoubleNegation(t *testing.T) {
	e := eqLeaf("foo")
	twice := e.Negate().Negate()
	if twice != e {
		t.Fatalf("expected double negation to fold back to the original node")
	}
}

func TestNegateFlipsConstants(t *testing.T) {
	if !True().Negate().IsUnsatisfiable() {
		t.Fatal("expected Negate(True()) to be False()")
	}
	b := sqlbuild.New()
	got, err := False().Negate().Render(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != "TRUE" {
		t.Fatalf("expected Negate(False()) to render TRUE, got %q", got)
	}
}

func TestImpliesIsNegateOr(t *testing.T) {
	b := sqlbuild.New()
	got, err := eqLeaf("foo").Implies(eqLeaf("bar")).Render(b)
	if err != nil {
		t.Fatal(err)
	}
	want := "(NOT (cards.slug = $1) OR cards.slug = $2)"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMakeUnsatisfiableCollapsesSubtree(t *testing.T) {
	e := eqLeaf("foo").And(eqLeaf("bar")).Or(eqLeaf("baz"))
	e = e.MakeUnsatisfiable()
	if !e.IsUnsatisfiable() {
		t.Fatal("expected MakeUnsatisfiable to produce an unsatisfiable expression")
	}
}

func TestAndRendersConjunction(t *testing.T) {
	b := sqlbuild.New()
	got, err := eqLeaf("foo").And(eqLeaf("bar")).Render(b)
	if err != nil {
		t.Fatal(err)
	}
	want := "(cards.slug = $1 AND cards.slug = $2)"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
