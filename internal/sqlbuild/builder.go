// Package sqlbuild is the thin, pgx-flavored SQL text accumulator every
// other compiler package renders into: a growing string plus a parallel
// []any argument slice addressed by $1, $2, ... placeholders, exactly the
// placeholder style jackc/pgx expects at execution time.
//
// Only internal/fts deliberately bypasses the placeholder mechanism (the
// full-text term must be inlined as a literal so the emitted expression
// matches a planned index exactly); every other primitive filter binds
// through Builder.Bind.
package sqlbuild

import (
	"fmt"
	"strings"
)

// Builder accumulates SQL text and bound arguments during a single
// compilation. It is never shared across compilations.
type Builder struct {
	sb   strings.Builder
	args []any
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// WriteString appends raw SQL text verbatim. Callers must never pass
// unescaped user-controlled text here; use Bind for values and
// internal/sqlident for identifiers.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Bind appends value to the argument list and writes its $N placeholder.
func (b *Builder) Bind(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// NextPlaceholder previews the placeholder Bind would produce next, without
// binding — used when a caller needs to reference the same upcoming
// argument twice in generated text.
func (b *Builder) NextPlaceholder() string {
	return fmt.Sprintf("$%d", len(b.args)+1)
}

// String returns the accumulated SQL text.
func (b *Builder) String() string {
	return b.sb.String()
}

// Args returns the accumulated bound arguments, in placeholder order.
func (b *Builder) Args() []any {
	return b.args
}

// OrderKey is one ORDER BY term: an expression plus direction. NullsLast is
// always true per spec.md §4.4.2.
type OrderKey struct {
	Expr string
	Desc bool
}

// Render writes "expr ASC|DESC NULLS LAST".
func (k OrderKey) Render() string {
	dir := "ASC"
	if k.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s NULLS LAST", k.Expr, dir)
}

// RenderOrderBy joins a non-empty key list into "ORDER BY k1, k2, ...". It
// returns "" for an empty key list so callers can safely concatenate.
func RenderOrderBy(keys []OrderKey) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Render()
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
