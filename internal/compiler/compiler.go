package compiler

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/product-os/autumndb-sub002/internal/contract"
	"github.com/product-os/autumndb-sub002/internal/dberrors"
	"github.com/product-os/autumndb-sub002/internal/path"
	"github.com/product-os/autumndb-sub002/internal/selectmap"
	"github.com/product-os/autumndb-sub002/internal/semver"
	"github.com/product-os/autumndb-sub002/internal/sqlbuild"
	"github.com/product-os/autumndb-sub002/internal/sqlvalidate"
)

// MaxLimit is the hard cap spec.md §4.5 places on any single result page,
// root query or link alike.
const MaxLimit = 1000

// Options controls the root query's ordering and pagination. SortBy names a
// property path from the schema's root (its first element may be a known
// contracts column, e.g. "created_at", or a name under the contract's own
// data); SortVersion overrides SortBy with the five-key semver ordering
// spec.md §4.6 requires for "sort by version".
type Options struct {
	SortBy      []string
	SortVersion bool
	SortDesc    bool
	Skip        int
	Limit       int
}

// Query is a compiled, ready-to-execute statement: parameterized SQL plus
// its positional arguments, in $1, $2, ... order.
type Query struct {
	SQL  string
	Args []any
}

// Compile turns a JSON-Schema document (as raw bytes) plus pagination
// options into a single parameterized SQL statement over the contracts
// schema (spec.md §4.4). The schema is decoded with goccy/go-json, the same
// library this module uses everywhere else untrusted JSON crosses a
// boundary; every value it binds into the statement goes through
// sqlbuild.Builder as a placeholder, and the assembled SQL is parsed with
// sqlvalidate before it is ever returned to a caller.
func Compile(schemaJSON []byte, opts Options) (*Query, error) {
	if opts.Limit <= 0 || opts.Limit > MaxLimit {
		return nil, &dberrors.InvalidLimit{Requested: opts.Limit, Max: MaxLimit}
	}
	if opts.Skip < 0 {
		return nil, &dberrors.InvalidLimit{Requested: opts.Skip, Max: MaxLimit}
	}

	var schema any
	if err := gojson.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, &dberrors.InvalidSchema{Reason: fmt.Sprintf("malformed schema JSON: %v", err)}
	}

	b := sqlbuild.New()
	root := path.New()
	sel := selectmap.New()

	expr, _, links, err := compileNode(schema, root, contract.TableName, sel, "", b)
	if err != nil {
		return nil, err
	}

	whereSQL, err := expr.Render(b)
	if err != nil {
		return nil, err
	}
	orderKeys, err := buildOrderKeys(contract.TableName, opts)
	if err != nil {
		return nil, err
	}

	var sql string
	if len(links) == 0 {
		sql, err = assembleFlat(b, whereSQL, orderKeys, sel, opts)
	} else {
		sql, err = assembleWithLinks(b, whereSQL, orderKeys, sel, links, opts)
	}
	if err != nil {
		return nil, err
	}

	if err := sqlvalidate.Validate(sql); err != nil {
		return nil, &dberrors.InvalidSchema{Reason: fmt.Sprintf("compiler produced unparsable SQL: %v", err)}
	}

	return &Query{SQL: sql, Args: b.Args()}, nil
}

// assembleFlat is the no-$$links fast path: a single SELECT with no CTEs.
func assembleFlat(b *sqlbuild.Builder, whereSQL string, orderKeys []sqlbuild.OrderKey, sel *selectmap.Map, opts Options) (string, error) {
	payload, err := sel.EmitProjection(b, path.New(), path.RenderOptions{Alias: contract.TableName})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT %s AS payload\nFROM %s\nWHERE %s\n%s\nLIMIT %d OFFSET %d",
		payload, contract.TableName, whereSQL, sqlbuild.RenderOrderBy(orderKeys), opts.Limit, opts.Skip,
	), nil
}

// buildOrderKeys renders the root query's ORDER BY, defaulting to a stable
// id ordering when the caller names no sort property. SortBy's head element
// must be a known contracts column (contract/columns.go) — an unrecognized
// head is rejected rather than silently descended into as a JSONProperty
// off the table alias, which would render an invalid jsonb extraction
// against a text alias.
func buildOrderKeys(alias string, opts Options) ([]sqlbuild.OrderKey, error) {
	if opts.SortVersion {
		return semver.OrderKeys(alias, opts.SortDesc), nil
	}
	if len(opts.SortBy) == 0 {
		return []sqlbuild.OrderKey{{Expr: alias + ".id"}}, nil
	}

	p := path.New()
	head := opts.SortBy[0]
	if _, ok := contract.Columns[head]; !ok {
		return nil, &dberrors.InvalidSchema{Reason: fmt.Sprintf("unknown sortBy property %q", head)}
	}
	p.Push(path.Segment{Kind: path.Column, Name: head})
	for _, name := range opts.SortBy[1:] {
		p.Push(path.Segment{Kind: path.JSONProperty, Name: name})
	}
	expr := p.Render(path.RenderOptions{Alias: alias, Cast: path.CastText})
	return []sqlbuild.OrderKey{{Expr: expr, Desc: opts.SortDesc}}, nil
}
