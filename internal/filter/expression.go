package filter

import (
	"strings"

	"github.com/product-os/autumndb-sub002/internal/sqlbuild"
)

type exprOp int

const (
	opLeaf exprOp = iota
	opAnd
	opOr
	opNot
	opTrue
	opFalse
)

// Expression is the boolean-algebra tree spec.md §4.2 composes primitive
// Filters with: conjoin, disjoin, negate, implies, plus a makeUnsatisfiable
// escape hatch. It performs only the documented trivial simplifications —
// absorbing a constant true/false operand and folding double negation —
// never a full DNF/CNF normalization (cost is left to the query planner).
type Expression struct {
	op       exprOp
	leaf     Filter
	children []*Expression
}

// Leaf wraps a primitive Filter as an Expression.
func Leaf(f Filter) *Expression {
	return &Expression{op: opLeaf, leaf: f}
}

// True returns the constant-true expression.
func True() *Expression { return &Expression{op: opTrue} }

// False returns the constant-false expression.
func False() *Expression { return &Expression{op: opFalse} }

// And conjoins e with other, absorbing a constant operand.
func (e *Expression) And(other *Expression) *Expression {
	if e.op == opFalse || other.op == opFalse {
		return False()
	}
	if e.op == opTrue {
		return other
	}
	if other.op == opTrue {
		return e
	}
	return &Expression{op: opAnd, children: []*Expression{e, other}}
}

// Or disjoins e with other, absorbing a constant operand.
func (e *Expression) Or(other *Expression) *Expression {
	if e.op == opTrue || other.op == opTrue {
		return True()
	}
	if e.op == opFalse {
		return other
	}
	if other.op == opFalse {
		return e
	}
	return &Expression{op: opOr, children: []*Expression{e, other}}
}

// Negate inverts e, folding a double negation and flipping constants
// instead of wrapping them.
func (e *Expression) Negate() *Expression {
	switch e.op {
	case opTrue:
		return False()
	case opFalse:
		return True()
	case opNot:
		return e.children[0]
	default:
		return &Expression{op: opNot, children: []*Expression{e}}
	}
}

// Implies renders e → other as ¬e ∨ other (spec.md §4.2).
func (e *Expression) Implies(other *Expression) *Expression {
	return e.Negate().Or(other)
}

// MakeUnsatisfiable collapses the whole subtree to constant false — used
// when a schema node's own constraints can be proven contradictory before
// any SQL is built (e.g. a oneOf branch whose const conflicts with a type
// guard already established higher up the path).
func (e *Expression) MakeUnsatisfiable() *Expression {
	return False()
}

// IsUnsatisfiable reports whether e is the constant-false expression.
func (e *Expression) IsUnsatisfiable() bool {
	return e.op == opFalse
}

// Render emits e as a single parenthesized SQL boolean expression.
func (e *Expression) Render(b *sqlbuild.Builder) (string, error) {
	switch e.op {
	case opTrue:
		return "TRUE", nil
	case opFalse:
		return "FALSE", nil
	case opLeaf:
		return e.leaf.Render(b)
	case opNot:
		inner, err := e.children[0].Render(b)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		joiner := " AND "
		if e.op == opOr {
			joiner = " OR "
		}
		parts := make([]string, len(e.children))
		for i, c := range e.children {
			s, err := c.Render(b)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, joiner) + ")", nil
	}
}
