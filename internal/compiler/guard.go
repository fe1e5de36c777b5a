package compiler

import (
	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/filter"
	"github.com/product-os/autumndb-sub002/internal/path"
)

// allJSONTypes is the unconstrained permitted-type set: a JSONB path with no
// "type" keyword applied yet could hold any of the six JSON-Schema
// primitives (spec.md §4.4 type guarding).
var allJSONTypes = []contract.JSONType{
	contract.JSONString, contract.JSONNumber, contract.JSONBoolean,
	contract.JSONNull, contract.JSONArray, contract.JSONObject,
}

// integerTypeSet and numberTypeSet distinguish the "integer" JSON-Schema
// type, which spec.md §4.4 defines as IsOfJsonTypes({"number"}) with an
// additional MultipleOf(1) constraint layered on top — there is no distinct
// "integer" entry in contract.JSONType because Postgres's jsonb_typeof
// never reports one.
var numberTypeSet = []contract.JSONType{contract.JSONNumber}

func typeSet(types []contract.JSONType) map[contract.JSONType]bool {
	m := make(map[contract.JSONType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

func sameTypeSet(a map[contract.JSONType]bool, b []contract.JSONType) bool {
	if len(a) != len(b) {
		return false
	}
	for _, t := range b {
		if !a[t] {
			return false
		}
	}
	return true
}

// guardScalar wraps f — a filter meaningful only when the path holds one of
// requiredTypes — with the node's current type guard, per spec.md §4.4:
//
//   - a non-JSONB path (ctx.path.IsJSONDescent() is false) already has a
//     known static column type; no runtime guard is ever needed.
//   - a JSONB path whose permitted-type set has already been narrowed to
//     exactly requiredTypes collapses the wrap: "x ∧ (¬x ∨ y) ≡ x ∧ y", the
//     guard was already established by an enclosing "type" keyword.
//   - otherwise f is guarded: IsOfJSONTypes(requiredTypes) → f.
func (c *nodeCtx) guardScalar(requiredTypes []contract.JSONType, f *filter.Expression) *filter.Expression {
	if !c.path.IsJSONDescent() {
		return f
	}
	if c.permitted != nil && sameTypeSet(c.permitted, requiredTypes) {
		return f
	}
	guard := filter.Leaf(&filter.IsOfJSONTypes{Path: c.path, Types: requiredTypes, Opts: c.renderOpts()})
	return guard.Implies(f)
}

// guardInteger is guardScalar's "integer" special case: IsOfJsonTypes
// ({"number"}) ∧ MultipleOf(1), guarded the same way as any other scalar
// content filter.
func (c *nodeCtx) guardInteger() *filter.Expression {
	isInt := filter.Leaf(&filter.MultipleOf{Path: c.path, Divisor: 1, Opts: c.renderOpts()})
	return c.guardScalar(numberTypeSet, isInt)
}

func (c *nodeCtx) renderOpts() path.RenderOptions {
	return path.RenderOptions{Alias: c.alias}
}
