package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/product-os/autumndb-sub002/internal/dberrors"
)

func mustCompile(t *testing.T, schema string, opts Options) *Query {
	t.Helper()
	if opts.Limit == 0 {
		opts.Limit = 100
	}
	q, err := Compile([]byte(schema), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return q
}

func TestCompileTrivialSchemaSelectsEverything(t *testing.T) {
	q := mustCompile(t, `{"type": "object"}`, Options{})
	if !strings.Contains(q.SQL, "FROM cards") {
		t.Fatalf("expected a scan over cards, got %s", q.SQL)
	}
	if !strings.Contains(q.SQL, "LIMIT 100 OFFSET 0") {
		t.Fatalf("expected the requested limit/offset, got %s", q.SQL)
	}
}

func TestCompileConstOnColumnBindsPlaceholder(t *testing.T) {
	q := mustCompile(t, `{
		"type": "object",
		"properties": {"slug": {"const": "org-acme"}},
		"required": ["slug"]
	}`, Options{})
	if len(q.Args) != 1 || q.Args[0] != "org-acme" {
		t.Fatalf("expected a single bound arg \"org-acme\", got %v", q.Args)
	}
	if !strings.Contains(q.SQL, "$1") {
		t.Fatalf("expected a $1 placeholder, got %s", q.SQL)
	}
}

func TestCompileIntegerTypeAddsMultipleOfGuard(t *testing.T) {
	q := mustCompile(t, `{
		"type": "object",
		"properties": {
			"data": {
				"type": "object",
				"properties": {"count": {"type": "integer"}},
				"required": ["count"]
			}
		},
		"required": ["data"]
	}`, Options{})
	if !strings.Contains(q.SQL, "mod(") {
		t.Fatalf("expected an integer multipleOf(1) guard in the WHERE clause, got %s", q.SQL)
	}
}

func TestCompileRejectsUnknownKeyword(t *testing.T) {
	_, err := Compile([]byte(`{"type": "object", "totallyMadeUp": true}`), Options{Limit: 10})
	if err == nil {
		t.Fatal("expected an error for an unsupported keyword")
	}
}

func TestCompileRejectsUnknownTopLevelProperty(t *testing.T) {
	_, err := Compile([]byte(`{"properties": {"bogus": {"const": 1}}}`), Options{Limit: 10})
	if err == nil {
		t.Fatal("expected an error for a top-level property that is not a known contracts column")
	}
	var invalid *dberrors.InvalidSchema
	if !errors.As(err, &invalid) {
		t.Fatalf("expected a *dberrors.InvalidSchema, got %T: %v", err, err)
	}
}

func TestCompileRejectsUnknownSortByHead(t *testing.T) {
	_, err := Compile([]byte(`true`), Options{Limit: 10, SortBy: []string{"bogus"}})
	if err == nil {
		t.Fatal("expected an error for a sortBy head that is not a known contracts column")
	}
	var invalid *dberrors.InvalidSchema
	if !errors.As(err, &invalid) {
		t.Fatalf("expected a *dberrors.InvalidSchema, got %T: %v", err, err)
	}
}

func TestCompileRejectsLimitAboveMax(t *testing.T) {
	_, err := Compile([]byte(`true`), Options{Limit: MaxLimit + 1})
	if err == nil {
		t.Fatal("expected an error for a limit above MaxLimit")
	}
}

func TestCompileRejectsNegativeSkip(t *testing.T) {
	_, err := Compile([]byte(`true`), Options{Limit: 10, Skip: -1})
	if err == nil {
		t.Fatal("expected an error for a negative skip")
	}
}

func TestCompileBooleanTrueSchemaHasNoWhereClause(t *testing.T) {
	q := mustCompile(t, `true`, Options{})
	if !strings.Contains(q.SQL, "WHERE TRUE") {
		t.Fatalf("expected an unconditional WHERE TRUE, got %s", q.SQL)
	}
}

func TestCompileBooleanFalseSchemaIsUnsatisfiable(t *testing.T) {
	q := mustCompile(t, `false`, Options{})
	if !strings.Contains(q.SQL, "FALSE") {
		t.Fatalf("expected an unconditional WHERE FALSE, got %s", q.SQL)
	}
}

func TestCompileSortByVersionEmitsSemverOrdering(t *testing.T) {
	q := mustCompile(t, `{"type": "object"}`, Options{SortVersion: true, SortDesc: true})
	if !strings.Contains(q.SQL, "ORDER BY") {
		t.Fatalf("expected an ORDER BY clause, got %s", q.SQL)
	}
}

func TestCompileWithLinksEmitsCTEs(t *testing.T) {
	q := mustCompile(t, `{
		"type": "object",
		"$$links": {
			"is attached to": {"type": "object"}
		}
	}`, Options{})
	if !strings.Contains(q.SQL, "WITH inner_ids AS") {
		t.Fatalf("expected an inner_ids CTE, got %s", q.SQL)
	}
	if !strings.Contains(q.SQL, "MATERIALIZED") {
		t.Fatalf("expected a MATERIALIZED barrier CTE, got %s", q.SQL)
	}
	if !strings.Contains(q.SQL, "LEFT JOIN LATERAL") {
		t.Fatalf("expected a LEFT JOIN LATERAL for the link payload, got %s", q.SQL)
	}

	found := false
	for _, a := range q.Args {
		if a == "is attached to" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the link name to be bound as a placeholder, got args %v", q.Args)
	}
}

func TestCompileContainsConstUsesContainmentOperator(t *testing.T) {
	q := mustCompile(t, `{
		"type": "object",
		"properties": {
			"data": {
				"type": "object",
				"properties": {
					"tags": {"type": "array", "contains": {"const": "urgent"}}
				},
				"required": ["tags"]
			}
		},
		"required": ["data"]
	}`, Options{})
	if !strings.Contains(q.SQL, "@>") {
		t.Fatalf("expected the jsonb containment optimization, got %s", q.SQL)
	}
}
