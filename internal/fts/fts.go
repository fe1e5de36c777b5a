// Package fts implements C5: the three full-text-search emission modes
// internal/filter's FullTextSearch primitive dispatches to, keyed by the
// static storage shape of the column being searched (spec.md §4.2, §4.5).
//
// The search term is always inlined as an escaped SQL string literal, never
// bound as a $N placeholder — the emitted expression must match, character
// for character, what a planned GIN/tsvector index expects, and pgx binds
// placeholders as untyped parameters that defeat that match.
package fts

import (
	"fmt"

	"github.com/product-os/autumndb-sub002/internal/path"
	"github.com/product-os/autumndb-sub002/internal/sqlident"
)

// ColumnKind selects which of the three emission modes a FullTextSearch
// filter needs, decided once by the compiler from the path's static column
// capability (internal/contract.ColumnInfo), never guessed at render time.
type ColumnKind int

const (
	// KindPlainColumn is a scalar text/jsonb-scalar column or JSON string
	// value reached without any array in between.
	KindPlainColumn ColumnKind = iota
	// KindJSONBString is a string nested inside arbitrary JSONB content,
	// searched via jsonb_to_tsvector's string-path restriction.
	KindJSONBString
	// KindTextArray is a native Postgres text[] column.
	KindTextArray
)

const englishConfig = "'english'"

// ForColumn renders a plain to_tsvector/plainto_tsquery match against a
// scalar text expression.
func ForColumn(p *path.Path, opts path.RenderOptions, term string) string {
	o := opts
	o.Cast = path.CastText
	expr := p.Render(o)
	return fmt.Sprintf(
		"to_tsvector(%s, %s) @@ plainto_tsquery(%s, %s)",
		englishConfig, expr, englishConfig, sqlident.QuoteLiteral(term),
	)
}

// ForJSONBString renders a jsonb_to_tsvector match restricted to string
// leaves, for a term that may be nested anywhere inside a jsonb document
// (spec.md §4.5: "in arrays, uses jsonb_to_tsvector").
func ForJSONBString(p *path.Path, opts path.RenderOptions, term string) string {
	o := opts
	o.AsJSONB = true
	o.Cast = path.CastNone
	expr := p.Render(o)
	return fmt.Sprintf(
		`jsonb_to_tsvector(%s, %s, '["string"]') @@ plainto_tsquery(%s, %s)`,
		englishConfig, expr, englishConfig, sqlident.QuoteLiteral(term),
	)
}

// ForTextArray renders a match against a native text[] column by first
// flattening it with the immutable_array_to_string indirection — a
// STABLE/IMMUTABLE SQL wrapper around array_to_string the schema installs
// so the expression is indexable, since array_to_string itself is only
// STABLE and Postgres refuses to index a non-IMMUTABLE expression.
func ForTextArray(p *path.Path, opts path.RenderOptions, term string) string {
	o := opts
	o.Cast = path.CastNone
	expr := p.Render(o)
	return fmt.Sprintf(
		"to_tsvector(%s, immutable_array_to_string(%s, ' ')) @@ plainto_tsquery(%s, %s)",
		englishConfig, expr, englishConfig, sqlident.QuoteLiteral(term),
	)
}
