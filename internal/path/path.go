// Package path implements C1: the logical-path model the compiler walks
// while it descends a JSON-Schema document, and the rules for rendering the
// current path as a SQL expression with the correct cast (spec.md §4.1).
package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/sqlident"
)

// SegmentKind is the closed tag of a Path segment.
type SegmentKind int

const (
	Column SegmentKind = iota
	SubColumn
	JSONProperty
	JSONIndex
)

// Segment is one step of a Path. Only Name or Index is meaningful,
// depending on Kind. SubColumn and JSONIndex both carry a 0-based Index;
// SubColumn renders with 1-based SQL array indexing (spec.md §4.1), while
// JSONIndex renders as a plain decimal inside a #>/#>> path array, which
// Postgres already treats as 0-based JSON indexing.
type Segment struct {
	Kind  SegmentKind
	Name  string // Column, SubColumn (array element's own name is unused), JSONProperty
	Index int    // SubColumn, JSONIndex
}

// Path is an ordered sequence of segments describing where, inside a
// contract row, a filter or select-map node is talking about. It is
// mutated during a depth-first walk of the schema and frozen with
// Flattened when a correlated sub-query needs an independent snapshot.
//
// Invariant: at most one Column segment, always at index 0. A SubColumn
// segment may only follow a Column segment whose contract.ColumnInfo.Kind
// is KindJSONBArray (an array whose items are JSON-typed) — the compiler
// enforces this before pushing, Path itself does not re-validate it.
type Path struct {
	segments []Segment
}

// New returns an empty Path.
func New() *Path {
	return &Path{}
}

// Push appends a segment.
func (p *Path) Push(s Segment) {
	p.segments = append(p.segments, s)
}

// Pop removes the last segment. Popping an empty Path is a no-op — callers
// are expected to push/pop in matching pairs during recursion.
func (p *Path) Pop() {
	if len(p.segments) == 0 {
		return
	}
	p.segments = p.segments[:len(p.segments)-1]
}

// SetLast replaces the last segment; panics on an empty Path since it is
// only ever called right after a Push.
func (p *Path) SetLast(s Segment) {
	p.segments[len(p.segments)-1] = s
}

// Last returns the last segment and whether the Path is non-empty.
func (p *Path) Last() (Segment, bool) {
	if len(p.segments) == 0 {
		return Segment{}, false
	}
	return p.segments[len(p.segments)-1], true
}

// SecondToLast returns the second-to-last segment and whether it exists.
func (p *Path) SecondToLast() (Segment, bool) {
	if len(p.segments) < 2 {
		return Segment{}, false
	}
	return p.segments[len(p.segments)-2], true
}

// IsProcessingTable reports whether the Path is currently empty (at the
// table root, before any column has been selected).
func (p *Path) IsProcessingTable() bool {
	return len(p.segments) == 0
}

// IsProcessingColumn reports whether the last segment is the head column.
func (p *Path) IsProcessingColumn() bool {
	last, ok := p.Last()
	return ok && last.Kind == Column
}

// IsProcessingSubColumn reports whether the last segment descends into an
// array-of-JSON column's element.
func (p *Path) IsProcessingSubColumn() bool {
	last, ok := p.Last()
	return ok && last.Kind == SubColumn
}

// IsProcessingJSONProperty reports whether the last segment is a JSONB
// property or index descent.
func (p *Path) IsProcessingJSONProperty() bool {
	last, ok := p.Last()
	return ok && (last.Kind == JSONProperty || last.Kind == JSONIndex)
}

// Len reports the number of segments currently on the path.
func (p *Path) Len() int { return len(p.segments) }

// Flattened returns an independent copy of the current path, used when
// building a correlated sub-query that must keep referencing the parent
// row's path after the parent Path continues mutating (spec.md §4.1).
func (p *Path) Flattened() *Path {
	cp := make([]Segment, len(p.segments))
	copy(cp, p.segments)
	return &Path{segments: cp}
}

// headColumn returns the Column segment, which by invariant is always at
// index 0 when present.
func (p *Path) headColumn() (Segment, bool) {
	if len(p.segments) == 0 || p.segments[0].Kind != Column {
		return Segment{}, false
	}
	return p.segments[0], true
}

// ColumnInfo returns the contract.ColumnInfo for the Path's head column.
func (p *Path) ColumnInfo() (contract.ColumnInfo, bool) {
	head, ok := p.headColumn()
	if !ok {
		return contract.ColumnInfo{}, false
	}
	info, ok := contract.Columns[head.Name]
	return info, ok
}

// IsJSONDescent reports whether the path, beyond the head column and any
// sub-column, descends into JSONB content (as opposed to being a bare
// column or sub-column reference).
func (p *Path) IsJSONDescent() bool {
	for _, s := range p.segments {
		if s.Kind == JSONProperty || s.Kind == JSONIndex {
			return true
		}
	}
	return false
}

// Cast is the SQL type a comparison wants the rendered path coerced to.
// The choice is driven by the filter, never by the path itself (spec.md
// §4.1 invariant).
type Cast string

const (
	CastNone      Cast = ""
	CastText      Cast = "text"
	CastNumeric   Cast = "numeric"
	CastBoolean   Cast = "boolean"
	CastDate      Cast = "date"
	CastTime      Cast = "time"
	CastTimestamp Cast = "timestamp"
)

// RenderOptions controls one rendering of a Path into SQL text.
type RenderOptions struct {
	// Alias overrides the default table alias for the head column — used
	// when a path must reference a linked contract's row under its own
	// join alias (spec.md §4.1: "Paths may render at a specific target
	// table alias").
	Alias string
	// AsJSONB requests the JSONB-returning extraction operator (#>) instead
	// of the text-returning one (#>>), used when a sub-JSONB value (not a
	// scalar) is needed downstream (e.g. @> containment, json typeof).
	AsJSONB bool
	// Cast requests a SQL CAST around a text-returning extraction.
	Cast Cast
}

// defaultAlias is the table alias every compiled query's root row is bound
// to (spec.md §3: the primary table is rendered as "cards.colname").
const defaultAlias = contract.TableName

// Render produces the SQL expression for the Path under opts. It never
// returns an error: Path construction is expected to have already
// validated segment shape (sub-column only under an array-of-JSON column,
// JSON-index segments integer-parseable) via the compiler's own
// bookkeeping.
func (p *Path) Render(opts RenderOptions) string {
	alias := opts.Alias
	if alias == "" {
		alias = defaultAlias
	}

	if len(p.segments) == 0 {
		return alias
	}

	head := p.segments[0]

	// A path that does not start with a Column segment is rooted at an
	// already-jsonb expression — the per-element alias bound by an
	// ArrayContains unnest/jsonb_array_elements clause, not a contracts
	// column. Render treats the alias itself as the jsonb base.
	if head.Kind != Column {
		return renderJSONChain(alias, p.segments, opts)
	}

	base := fmt.Sprintf("%s.%s", alias, sqlident.QuoteIdentifier(head.Name))

	if len(p.segments) == 1 {
		return applyCast(base, opts)
	}

	rest := p.segments[1:]

	if rest[0].Kind == SubColumn {
		base = fmt.Sprintf("%s[%d]", base, rest[0].Index+1)
		rest = rest[1:]
		if len(rest) == 0 {
			return applyCast(base, opts)
		}
	}

	return renderJSONChain(base, rest, opts)
}

// renderJSONChain renders a #>/#>> extraction chain for the given segments
// beneath base, which must already be a jsonb-typed SQL expression.
func renderJSONChain(base string, segs []Segment, opts RenderOptions) string {
	if len(segs) == 0 {
		return applyCast(base, opts)
	}

	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s.Kind {
		case JSONProperty:
			parts = append(parts, quoteArrayElement(s.Name))
		case JSONIndex:
			parts = append(parts, strconv.Itoa(s.Index))
		default:
			// Unreachable given the compiler's own construction discipline.
		}
	}

	// Property names are attacker-controlled (arbitrary JSON-Schema keys):
	// quote each as a Postgres array-literal element (backslash-escaping
	// inner quotes), then escape only the single quotes of the resulting
	// text for its enclosing SQL string literal — under Postgres's default
	// standard_conforming_strings a backslash here is a literal character,
	// not an escape, so it must not be doubled a second time.
	literal := "'" + strings.ReplaceAll("{"+strings.Join(parts, ",")+"}", "'", "''") + "'"

	op := "#>>"
	if opts.AsJSONB {
		op = "#>"
	}

	expr := fmt.Sprintf("%s %s %s", base, op, literal)
	return applyCast(expr, opts)
}

// quoteArrayElement renders name as a double-quoted Postgres array-literal
// element, escaping backslashes and embedded double quotes. name is
// attacker-controlled (an arbitrary JSON-Schema property key).
func quoteArrayElement(name string) string {
	escaped := strings.ReplaceAll(name, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

func applyCast(expr string, opts RenderOptions) string {
	if opts.Cast == CastNone {
		return expr
	}
	return fmt.Sprintf("(%s)::%s", expr, string(opts.Cast))
}
