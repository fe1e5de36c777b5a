// Package selectmap implements C3: the projection planner the compiler
// builds while it walks a query schema's select/properties tree, and the
// jsonb_build_object emission that turns it into the row's payload
// expression (spec.md §4.3).
package selectmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/filter"
	"github.com/product-os/autumndb-sub002/internal/path"
	"github.com/product-os/autumndb-sub002/internal/sqlbuild"
	"github.com/product-os/autumndb-sub002/internal/sqlident"
)

// Map tracks, for one schema node, which properties the caller's query is
// allowed to see. Branching (one Map per anyOf alternative) keeps each
// alternative's own view independent, so fields from a non-matching branch
// never leak into the union emitted for a row (spec.md §4.3).
type Map struct {
	seen                 map[string]bool
	properties           map[string]*Map
	additionalProperties bool
	filter               filter.Filter
	links                map[string]*Map
	branches             []*Map
}

// New returns an empty Map with additionalProperties defaulting to true,
// matching spec.md §4.3's documented default.
func New() *Map {
	return &Map{
		seen:                 map[string]bool{},
		properties:           map[string]*Map{},
		links:                map[string]*Map{},
		additionalProperties: true,
	}
}

// See records that name is part of this node's selected properties without
// attaching any further nested structure — used for scalar leaves.
func (m *Map) See(name string) {
	m.seen[name] = true
}

// GetProperty returns the (creating if absent) nested Map for a structured
// object property, and implicitly marks name as seen.
func (m *Map) GetProperty(name string) *Map {
	if sub, ok := m.properties[name]; ok {
		return sub
	}
	sub := New()
	m.properties[name] = sub
	m.seen[name] = true
	return sub
}

// NewBranch allocates and records a new anyOf alternative, returning its own
// independent Map.
func (m *Map) NewBranch() *Map {
	b := New()
	m.branches = append(m.branches, b)
	return b
}

// SetAdditionalProperties toggles whether the raw underlying row/object is
// merged beneath the structured projection (spec.md §4.3 default: true).
func (m *Map) SetAdditionalProperties(v bool) {
	m.additionalProperties = v
}

// GetAdditionalProperties reports the current additionalProperties setting.
func (m *Map) GetAdditionalProperties() bool {
	return m.additionalProperties
}

// GetLink returns the (creating if absent) Map for a $$links sub-selection
// keyed by link name. selectmap only records which link types are wanted
// and their nested projection — the lateral-join SQL that actually
// populates "links" in the row is wired by internal/compiler, which owns
// the join alias plumbing a Map has no visibility into.
func (m *Map) GetLink(linkName string) *Map {
	if sub, ok := m.links[linkName]; ok {
		return sub
	}
	sub := New()
	m.links[linkName] = sub
	return sub
}

// LinkNames returns the link names this node requested, in no particular
// order — internal/compiler resolves each against the Map GetLink built.
func (m *Map) LinkNames() []string {
	names := make([]string, 0, len(m.links))
	for name := range m.links {
		names = append(names, name)
	}
	return names
}

// Link returns the Map previously created by GetLink for name, if any.
func (m *Map) Link(name string) (*Map, bool) {
	sub, ok := m.links[name]
	return sub, ok
}

// SetFilter attaches the guard filter this branch's fields are conditioned
// on at emit time (only meaningful on a Map returned by NewBranch).
func (m *Map) SetFilter(f filter.Filter) {
	m.filter = f
}

// EmitProjection renders the jsonb_build_object(...) for this node — union
// of its own seen properties and the `||`-concatenated, filter-guarded
// objects of every anyOf branch — deep-merged beneath the raw row/object
// content when additionalProperties is true. base is the Path this node is
// rooted at (the table root, or a link/array-element alias further down a
// query); opts.Alias selects the table alias base.Render and to_jsonb(·.*)
// use.
func (m *Map) EmitProjection(b *sqlbuild.Builder, base *path.Path, opts path.RenderOptions) (string, error) {
	own, err := m.emitOwnObject(b, base, opts)
	if err != nil {
		return "", err
	}

	expr := own
	for _, branch := range m.branches {
		branchObj, err := branch.EmitProjection(b, base, opts)
		if err != nil {
			return "", err
		}
		if branch.filter != nil {
			cond, err := branch.filter.Render(b)
			if err != nil {
				return "", err
			}
			expr = fmt.Sprintf("(%s || CASE WHEN %s THEN %s ELSE '{}'::jsonb END)", expr, cond, branchObj)
		} else {
			expr = fmt.Sprintf("(%s || %s)", expr, branchObj)
		}
	}

	if m.additionalProperties {
		expr = fmt.Sprintf("(%s || %s)", m.rawObjectExpr(base, opts), expr)
	}

	return expr, nil
}

// rawObjectExpr renders the jsonb value of the raw, unfiltered row or
// sub-object this Map sits at, used as the additionalProperties=true base
// layer beneath the structured projection.
func (m *Map) rawObjectExpr(base *path.Path, opts path.RenderOptions) string {
	if base.IsProcessingTable() {
		alias := opts.Alias
		if alias == "" {
			alias = contract.TableName
		}
		return fmt.Sprintf("to_jsonb(%s.*)", alias)
	}
	rawOpts := opts
	rawOpts.AsJSONB = true
	rawOpts.Cast = path.CastNone
	return fmt.Sprintf("COALESCE(%s, '{}'::jsonb)", base.Render(rawOpts))
}

// emitOwnObject renders this node's own jsonb_build_object, recursing into
// any nested property Map, with keys emitted in sorted order so repeated
// compilations of the same schema always emit byte-identical SQL.
func (m *Map) emitOwnObject(b *sqlbuild.Builder, base *path.Path, opts path.RenderOptions) (string, error) {
	if len(m.seen) == 0 {
		return "'{}'::jsonb", nil
	}

	names := make([]string, 0, len(m.seen))
	for name := range m.seen {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		pp, err := propertyPath(base, name)
		if err != nil {
			return "", err
		}

		var valueExpr string
		if sub, ok := m.properties[name]; ok && (len(sub.seen) > 0 || len(sub.branches) > 0) {
			inner, err := sub.EmitProjection(b, pp, opts)
			if err != nil {
				return "", err
			}
			valueExpr = inner
		} else {
			valOpts := opts
			valOpts.AsJSONB = true
			valOpts.Cast = path.CastNone
			valueExpr = pp.Render(valOpts)
		}

		pairs = append(pairs, sqlident.QuoteLiteral(name), valueExpr)
	}

	return fmt.Sprintf("jsonb_build_object(%s)", strings.Join(pairs, ", ")), nil
}

// propertyPath extends base with name: a new top-level Column segment when
// base is still at the table root and name is a known contracts column,
// otherwise a JSONProperty descent (name is a key inside the current node's
// jsonb content).
//
// A top-level name that is not a known contracts column (contract/
// columns.go) is rejected here rather than silently pushed as a
// JSONProperty descent off the table alias, which base.Render would go on
// to render as an invalid jsonb extraction against a text alias. In
// practice the compiler's own node.go already rejects such a schema before
// selectmap ever sees the name; this mirrors that guard so the package's
// own invariant does not depend on a caller upholding it.
func propertyPath(base *path.Path, name string) (*path.Path, error) {
	p := base.Flattened()
	if base.IsProcessingTable() {
		if _, ok := contract.Columns[name]; !ok {
			return nil, fmt.Errorf("unknown property %q", name)
		}
		p.Push(path.Segment{Kind: path.Column, Name: name})
		return p, nil
	}
	p.Push(path.Segment{Kind: path.JSONProperty, Name: name})
	return p, nil
}
