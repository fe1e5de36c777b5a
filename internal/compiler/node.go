// Package compiler implements C4: the JSON-Schema → SQL compiler, the core
// of this module. compileNode walks one schema node at a time, in the
// order spec.md §4.4 requires — existence-affecting keywords first, then a
// closed per-keyword dispatch table — accumulating a filter.Expression, a
// selectmap.Map projection, and any $$links join plans discovered along
// the way.
package compiler

import (
	"fmt"
	"sort"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/dberrors"
	"github.com/product-os/autumndb-sub002/internal/filter"
	"github.com/product-os/autumndb-sub002/internal/logger"
	"github.com/product-os/autumndb-sub002/internal/path"
	"github.com/product-os/autumndb-sub002/internal/selectmap"
	"github.com/product-os/autumndb-sub002/internal/sqlbuild"
)

// ignoreSet is the closed list of keywords the compiler accepts but never
// acts on (spec.md §4.4 step 2).
var ignoreSet = map[string]bool{
	"description":    true,
	"title":          true,
	"examples":       true,
	"$id":            true,
	"$$linksOptions": true,
}

// keywordHandler compiles one schema keyword's contribution into ctx.
type keywordHandler func(ctx *nodeCtx, raw map[string]any, value any) error

// preWalkKeys are consumed during the pre-pass (spec.md §4.4 step 1) and
// must never also be dispatched through the main keyword table.
var preWalkKeys = map[string]bool{
	"additionalProperties": true,
	"type":                 true,
	"required":             true,
	"format":                true,
	"if":                   true,
	"then":                 true,
	"else":                 true,
}

// nodeCtx is the mutable state one compileObjectSchema call accumulates.
type nodeCtx struct {
	b       *sqlbuild.Builder
	path    *path.Path
	alias   string
	sel     *selectmap.Map
	jsonPtr string

	permitted map[contract.JSONType]bool // nil = unconstrained (all types)
	expr      *filter.Expression         // keyword constraints outside properties/required
	propsExpr *filter.Expression         // properties+required existence block, guarded as a unit
	implies   bool

	required  map[string]bool
	seenProps map[string]bool

	declaredFormat string
	links          []linkPlan
}

func (c *nodeCtx) renderOpts() path.RenderOptions {
	return path.RenderOptions{Alias: c.alias}
}

// compileNode dispatches on the schema node's JSON shape: a boolean schema
// is trivially satisfiable/unsatisfiable, anything else must be an object.
func compileNode(schema any, p *path.Path, alias string, sel *selectmap.Map, jsonPtr string, b *sqlbuild.Builder) (*filter.Expression, bool, []linkPlan, error) {
	switch v := schema.(type) {
	case bool:
		if v {
			return filter.True(), false, nil, nil
		}
		return filter.False(), true, nil, nil
	case map[string]any:
		return compileObjectSchema(v, p, alias, sel, jsonPtr, b)
	case nil:
		return filter.True(), false, nil, nil
	default:
		return nil, false, nil, &dberrors.InvalidSchema{Path: jsonPtr, Reason: "schema node must be an object or boolean"}
	}
}

func compileObjectSchema(raw map[string]any, p *path.Path, alias string, sel *selectmap.Map, jsonPtr string, b *sqlbuild.Builder) (*filter.Expression, bool, []linkPlan, error) {
	ctx := &nodeCtx{
		b:         b,
		path:      p,
		alias:     alias,
		sel:       sel,
		jsonPtr:   jsonPtr,
		expr:      filter.True(),
		required:  map[string]bool{},
		seenProps: map[string]bool{},
	}

	if err := ctx.applyPreWalk(raw); err != nil {
		return nil, false, nil, err
	}

	keys := sortedKeys(raw)
	for _, key := range keys {
		if preWalkKeys[key] || ignoreSet[key] {
			continue
		}
		handler, ok := keywordDispatch[key]
		if !ok {
			return nil, false, nil, &dberrors.InvalidSchema{Path: jsonPtr, Reason: fmt.Sprintf("unsupported keyword %q", key)}
		}
		if logger.IsDebug() {
			logger.Get().Debug("dispatching keyword", "path", jsonPtr, "keyword", key)
		}
		if err := handler(ctx, raw, raw[key]); err != nil {
			return nil, false, nil, err
		}
	}

	if err := ctx.finalizePropertiesAndRequired(raw); err != nil {
		return nil, false, nil, err
	}

	return ctx.expr, ctx.implies, ctx.links, nil
}

// applyPreWalk handles the keywords spec.md §4.4 step 1 requires to run
// before the rest of the node's keywords, since they change how later
// keywords behave (permitted types, required names, the format cast table,
// if/then/else's own compiled filter).
func (c *nodeCtx) applyPreWalk(raw map[string]any) error {
	if v, ok := raw["additionalProperties"]; ok {
		if b, ok := v.(bool); ok {
			c.sel.SetAdditionalProperties(b)
		}
	}

	if v, ok := raw["type"]; ok {
		types, err := decodeJSONTypes(v)
		if err != nil {
			return &dberrors.InvalidSchema{Path: c.jsonPtr, Reason: err.Error()}
		}
		// "integer" is not a distinct jsonb_typeof result — it is "number"
		// plus a MultipleOf(1) constraint (spec.md §4.4).
		hasInteger := false
		resolved := make([]contract.JSONType, 0, len(types))
		for _, t := range types {
			if string(t) == "integer" {
				hasInteger = true
				t = contract.JSONNumber
			}
			resolved = append(resolved, t)
		}
		c.permitted = typeSet(resolved)
		if hasInteger {
			c.expr = c.expr.And(c.guardInteger())
		}
	}

	if v, ok := raw["required"]; ok {
		names, ok := v.([]any)
		if !ok {
			return &dberrors.InvalidSchema{Path: c.jsonPtr, Reason: "required must be an array of strings"}
		}
		for _, n := range names {
			name, ok := n.(string)
			if !ok {
				return &dberrors.InvalidSchema{Path: c.jsonPtr, Reason: "required entries must be strings"}
			}
			c.required[name] = true
		}
	}

	if v, ok := raw["format"]; ok {
		name, ok := v.(string)
		if !ok {
			return &dberrors.InvalidSchema{Path: c.jsonPtr, Reason: "format must be a string"}
		}
		c.declaredFormat = name
		pattern, ok := formatRegexes[name]
		if !ok {
			return &dberrors.InvalidSchema{Path: c.jsonPtr, Reason: fmt.Sprintf("unsupported format %q", name)}
		}
		f := filter.Leaf(&filter.MatchesRegex{Path: c.path, Pattern: pattern, Opts: c.renderOpts()})
		c.expr = c.expr.And(c.guardScalar([]contract.JSONType{contract.JSONString}, f))
	}

	if ifSchema, ok := raw["if"]; ok {
		ifExpr, _, ifLinks, err := compileNode(ifSchema, c.path, c.alias, c.sel, c.jsonPtr+"/if", c.b)
		if err != nil {
			return err
		}
		c.links = append(c.links, ifLinks...)

		thenExpr := filter.True()
		if thenSchema, ok := raw["then"]; ok {
			e, _, thenLinks, err := compileNode(thenSchema, c.path, c.alias, c.sel, c.jsonPtr+"/then", c.b)
			if err != nil {
				return err
			}
			thenExpr = e
			c.links = append(c.links, thenLinks...)
		}

		elseExpr := filter.True()
		if elseSchema, ok := raw["else"]; ok {
			e, _, elseLinks, err := compileNode(elseSchema, c.path, c.alias, c.sel, c.jsonPtr+"/else", c.b)
			if err != nil {
				return err
			}
			elseExpr = e
			c.links = append(c.links, elseLinks...)
		}

		ifThenElse := ifExpr.And(thenExpr).Or(ifExpr.Negate().And(elseExpr))
		c.expr = c.expr.And(ifThenElse)
	}

	return nil
}

// finalizePropertiesAndRequired implements spec.md §4.4 step 3: the whole
// properties+required existence block is guarded, as a unit, by the node
// permitting type "object" — collapsing away when the node's type has
// already been narrowed to exactly {"object"}.
func (c *nodeCtx) finalizePropertiesAndRequired(raw map[string]any) error {
	for name := range c.required {
		if c.seenProps[name] {
			continue
		}
		p, err := propertyPath(c, name)
		if err != nil {
			return err
		}
		c.sel.See(name)
		exists := filter.Leaf(&filter.IsNull{Path: p, Negate: true, Opts: c.renderOpts()})
		c.propsExpr = andMaybe(c.propsExpr, exists)
	}

	if c.propsExpr == nil {
		return nil
	}
	c.expr = c.expr.And(c.guardScalar([]contract.JSONType{contract.JSONObject}, c.propsExpr))
	return nil
}

func andMaybe(acc *filter.Expression, next *filter.Expression) *filter.Expression {
	if acc == nil {
		return next
	}
	return acc.And(next)
}

// propertyPath extends ctx's path with a property name: a Column segment
// when the node is still at the table root and name is a known contracts
// column, otherwise a JSONProperty descent into the node's own jsonb
// content. Always built from a Flattened() snapshot so ctx.path itself is
// never mutated by a nested recursive compile.
//
// A top-level name (ctx.path.IsProcessingTable()) that is not in
// contract.Columns does not exist on a contract (contract/columns.go's
// doc comment) and is rejected here, rather than silently pushed as a
// JSONProperty descent off the table alias — which path.Render would go on
// to render as an invalid jsonb extraction against a text alias.
func propertyPath(ctx *nodeCtx, name string) (*path.Path, error) {
	p := ctx.path.Flattened()
	if ctx.path.IsProcessingTable() {
		if _, ok := contract.Columns[name]; !ok {
			return nil, &dberrors.InvalidSchema{Path: ctx.jsonPtr, Reason: fmt.Sprintf("unknown property %q", name)}
		}
		p.Push(path.Segment{Kind: path.Column, Name: name})
		return p, nil
	}
	p.Push(path.Segment{Kind: path.JSONProperty, Name: name})
	return p, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func schemaErr(ctx *nodeCtx, reason string) error {
	return &dberrors.InvalidSchema{Path: ctx.jsonPtr, Reason: reason}
}

func numberOf(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

func intOf(v any) (int, bool) {
	n, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// decodeJSONTypes accepts either a single type string or an array of type
// strings, as JSON-Schema's "type" keyword allows.
func decodeJSONTypes(v any) ([]contract.JSONType, error) {
	switch t := v.(type) {
	case string:
		return []contract.JSONType{contract.JSONType(t)}, nil
	case []any:
		out := make([]contract.JSONType, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("type array entries must be strings")
			}
			out = append(out, contract.JSONType(s))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("type must be a string or array of strings")
	}
}
