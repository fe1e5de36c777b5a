// Package filter implements C2: the primitive predicates every compiled
// WHERE clause is built from, plus the Expression boolean algebra that
// composes them (spec.md §4.2). Every primitive renders through
// sqlbuild.Builder so values are always bound as $N placeholders — the one
// documented exception is FullTextSearch, which inlines an escaped literal
// so the emitted expression matches a planned tsvector index exactly.
package filter

import (
	"fmt"
	"strings"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/fts"
	"github.com/product-os/autumndb-sub002/internal/path"
	"github.com/product-os/autumndb-sub002/internal/sqlbuild"
)

// Filter is one node of the compiled predicate tree.
type Filter interface {
	Render(b *sqlbuild.Builder) (string, error)
}

// Comparator is a restricted comparison operator. The set is closed so a
// caller can never splice an arbitrary operator string into SQL.
type Comparator string

const (
	EQ  Comparator = "="
	LT  Comparator = "<"
	LTE Comparator = "<="
	GT  Comparator = ">"
	GTE Comparator = ">="
	NEQ Comparator = "<>"
	// Contains is only valid for ValueIs against a jsonb path (@> containment).
	Contains Comparator = "@>"
)

func (c Comparator) valid(allowContains bool) bool {
	switch c {
	case EQ, LT, LTE, GT, GTE, NEQ:
		return true
	case Contains:
		return allowContains
	default:
		return false
	}
}

// Equals renders "<path> = <v>" for a single value or "<path> IN (...)" for
// more than one (spec.md §4.2: one-element sets render as "=").
type Equals struct {
	Path   *path.Path
	Values []any
	Opts   path.RenderOptions
}

func (f *Equals) Render(b *sqlbuild.Builder) (string, error) {
	if len(f.Values) == 0 {
		return "", fmt.Errorf("filter: Equals requires at least one value")
	}
	expr := f.Path.Render(f.Opts)
	if len(f.Values) == 1 {
		return fmt.Sprintf("%s = %s", expr, b.Bind(f.Values[0])), nil
	}
	placeholders := make([]string, len(f.Values))
	for i, v := range f.Values {
		placeholders[i] = b.Bind(v)
	}
	return fmt.Sprintf("%s IN (%s)", expr, strings.Join(placeholders, ", ")), nil
}

// ValueIs renders a single comparison, optionally casting the path first.
type ValueIs struct {
	Path  *path.Path
	Op    Comparator
	Value any
	Opts  path.RenderOptions
}

func (f *ValueIs) Render(b *sqlbuild.Builder) (string, error) {
	if !f.Op.valid(true) {
		return "", fmt.Errorf("filter: ValueIs has unsupported operator %q", f.Op)
	}
	expr := f.Path.Render(f.Opts)
	return fmt.Sprintf("%s %s %s", expr, string(f.Op), b.Bind(f.Value)), nil
}

// MatchesRegex renders a POSIX regex match, "~" or "~*" when IgnoreCase.
type MatchesRegex struct {
	Path       *path.Path
	Pattern    string
	IgnoreCase bool
	Opts       path.RenderOptions
}

func (f *MatchesRegex) Render(b *sqlbuild.Builder) (string, error) {
	op := "~"
	if f.IgnoreCase {
		op = "~*"
	}
	opts := f.Opts
	opts.Cast = path.CastText
	expr := f.Path.Render(opts)
	return fmt.Sprintf("%s %s %s", expr, op, b.Bind(f.Pattern)), nil
}

// IsNull renders "<path> IS [NOT] NULL".
type IsNull struct {
	Path   *path.Path
	Negate bool
	Opts   path.RenderOptions
}

func (f *IsNull) Render(b *sqlbuild.Builder) (string, error) {
	expr := f.Path.Render(f.Opts)
	if f.Negate {
		return fmt.Sprintf("%s IS NOT NULL", expr), nil
	}
	return fmt.Sprintf("%s IS NULL", expr), nil
}

// IsOfJSONTypes renders a jsonb_typeof membership check. The path is always
// rendered as jsonb (AsJSONB is forced on regardless of what the caller
// passed) since jsonb_typeof requires a jsonb argument, not extracted text.
type IsOfJSONTypes struct {
	Path  *path.Path
	Types []contract.JSONType
	Opts  path.RenderOptions
}

func (f *IsOfJSONTypes) Render(b *sqlbuild.Builder) (string, error) {
	if len(f.Types) == 0 {
		return "", fmt.Errorf("filter: IsOfJSONTypes requires at least one type")
	}
	opts := f.Opts
	opts.AsJSONB = true
	opts.Cast = path.CastNone
	expr := f.Path.Render(opts)
	placeholders := make([]string, len(f.Types))
	for i, t := range f.Types {
		placeholders[i] = b.Bind(string(t))
	}
	return fmt.Sprintf("jsonb_typeof(%s) IN (%s)", expr, strings.Join(placeholders, ", ")), nil
}

// ArrayLength compares an array's length. JSONB selects jsonb_array_length
// over a jsonb-rendered path; otherwise Postgres's native array_length(·,1)
// is used against the rendered (non-jsonb) path.
type ArrayLength struct {
	Path  *path.Path
	Op    Comparator
	N     int
	JSONB bool
	Opts  path.RenderOptions
}

func (f *ArrayLength) Render(b *sqlbuild.Builder) (string, error) {
	if !f.Op.valid(false) {
		return "", fmt.Errorf("filter: ArrayLength has unsupported operator %q", f.Op)
	}
	var lenExpr string
	if f.JSONB {
		opts := f.Opts
		opts.AsJSONB = true
		opts.Cast = path.CastNone
		lenExpr = fmt.Sprintf("jsonb_array_length(%s)", f.Path.Render(opts))
	} else {
		opts := f.Opts
		opts.Cast = path.CastNone
		lenExpr = fmt.Sprintf("array_length(%s, 1)", f.Path.Render(opts))
	}
	return fmt.Sprintf("%s %s %s", lenExpr, string(f.Op), b.Bind(f.N)), nil
}

// ArrayContains renders an EXISTS clause over an unnested array, binding
// Child against the per-element alias. For a jsonb array, elements come
// from jsonb_array_elements; for a native Postgres array column, from
// unnest. Child's own Path segments must be rooted at ElementAlias with no
// leading Column segment (path.Path treats that as already-jsonb, or for a
// scalar native element, the bare alias is the value itself).
type ArrayContains struct {
	Source       *path.Path
	ElementAlias string
	JSONB        bool
	Child        Filter
	Opts         path.RenderOptions
}

func (f *ArrayContains) Render(b *sqlbuild.Builder) (string, error) {
	childSQL, err := f.Child.Render(b)
	if err != nil {
		return "", err
	}
	if f.JSONB {
		opts := f.Opts
		opts.AsJSONB = true
		opts.Cast = path.CastNone
		source := f.Source.Render(opts)
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(%s) AS %s WHERE %s)",
			source, f.ElementAlias, childSQL,
		), nil
	}
	opts := f.Opts
	opts.Cast = path.CastNone
	source := f.Source.Render(opts)
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM unnest(%s) AS %s WHERE %s)",
		source, f.ElementAlias, childSQL,
	), nil
}

// StringLength compares a text value's character count.
type StringLength struct {
	Path *path.Path
	Op   Comparator
	N    int
	Opts path.RenderOptions
}

func (f *StringLength) Render(b *sqlbuild.Builder) (string, error) {
	if !f.Op.valid(false) {
		return "", fmt.Errorf("filter: StringLength has unsupported operator %q", f.Op)
	}
	opts := f.Opts
	opts.Cast = path.CastText
	return fmt.Sprintf("char_length(%s) %s %s", f.Path.Render(opts), string(f.Op), b.Bind(f.N)), nil
}

// JSONMapPropertyCount compares the number of keys of a jsonb object.
type JSONMapPropertyCount struct {
	Path *path.Path
	Op   Comparator
	N    int
	Opts path.RenderOptions
}

func (f *JSONMapPropertyCount) Render(b *sqlbuild.Builder) (string, error) {
	if !f.Op.valid(false) {
		return "", fmt.Errorf("filter: JSONMapPropertyCount has unsupported operator %q", f.Op)
	}
	opts := f.Opts
	opts.AsJSONB = true
	opts.Cast = path.CastNone
	expr := f.Path.Render(opts)
	return fmt.Sprintf(
		"(SELECT count(*) FROM jsonb_object_keys(%s)) %s %s",
		expr, string(f.Op), b.Bind(f.N),
	), nil
}

// MultipleOf renders a numeric modulo check. Divisor 0 never validates
// (the compiler rejects it before constructing this node).
type MultipleOf struct {
	Path    *path.Path
	Divisor float64
	Opts    path.RenderOptions
}

func (f *MultipleOf) Render(b *sqlbuild.Builder) (string, error) {
	opts := f.Opts
	opts.Cast = path.CastNumeric
	expr := f.Path.Render(opts)
	return fmt.Sprintf("mod(%s, %s) = 0", expr, b.Bind(f.Divisor)), nil
}

// FullTextSearch delegates to internal/fts, the only primitive that binds
// its term as an inlined, escaped literal instead of a $N placeholder.
type FullTextSearch struct {
	Path *path.Path
	Term string
	// Kind selects which tsvector strategy fts applies: a plain text/jsonb
	// scalar column, a jsonb string nested in JSON content, or a native
	// text[] column (spec.md §4.2, §4.5).
	Kind fts.ColumnKind
	Opts path.RenderOptions
}

func (f *FullTextSearch) Render(b *sqlbuild.Builder) (string, error) {
	switch f.Kind {
	case fts.KindPlainColumn:
		return fts.ForColumn(f.Path, f.Opts, f.Term), nil
	case fts.KindJSONBString:
		return fts.ForJSONBString(f.Path, f.Opts, f.Term), nil
	case fts.KindTextArray:
		return fts.ForTextArray(f.Path, f.Opts, f.Term), nil
	default:
		return "", fmt.Errorf("filter: FullTextSearch has unknown column kind %d", f.Kind)
	}
}

// Raw wraps an already-rendered SQL boolean expression verbatim. Used by
// internal/compiler where a node's own bookkeeping (e.g. the jsonb @>
// containment optimization for "contains": {"const": ...}) assembles text
// directly against sqlbuild.Builder instead of through a dedicated
// primitive type.
type Raw string

func (f Raw) Render(b *sqlbuild.Builder) (string, error) {
	return string(f), nil
}

// Link is a marker node recording that Child applies under a linked
// contract reached by LinkName — the join itself (and the alias Child's
// Path segments render under) is wired by internal/compiler's two-stage
// plan (spec.md §4.4.1). Render passes through to Child: by the time a
// Link filter reaches Render, the compiler has already rewritten Child's
// paths onto the correct join alias.
type Link struct {
	LinkName string
	Child    Filter
}

func (f *Link) Render(b *sqlbuild.Builder) (string, error) {
	return f.Child.Render(b)
}
